package models

import "gorm.io/gorm"

// Notification types
const (
	NotificationMention      = "mention"
	NotificationAssignment   = "assignment"
	NotificationComment      = "comment"
	NotificationTeamAdded    = "team_added"
	NotificationFileUploaded = "file_uploaded"
)

// Notification represents an in-app notification for a user. TargetType and
// TargetID reference the object the notification is about (task, comment, team).
type Notification struct {
	gorm.Model
	RecipientID uint   `gorm:"not null;index:idx_recipient_read,priority:1" json:"recipient_id"`
	SenderID    uint   `gorm:"not null" json:"sender_id"`
	Type        string `gorm:"not null" json:"type"`
	Message     string `gorm:"not null" json:"message"`
	IsRead      bool   `gorm:"default:false;index:idx_recipient_read,priority:2" json:"is_read"`

	TargetType string `gorm:"not null;index:idx_notification_target,priority:1" json:"target_type"`
	TargetID   uint   `gorm:"not null;index:idx_notification_target,priority:2" json:"target_id"`

	// Relations
	Recipient User `gorm:"foreignKey:RecipientID" json:"-"`
	Sender    User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
