package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Activity log actions
const (
	ActionTaskCreated  = "Task created"
	ActionTaskUpdated  = "Task updated"
	ActionCommentAdded = "Comment added"
	ActionFileUploaded = "File uploaded"
)

// ActivityLog is an append-only audit trail entry for task changes. Rows are
// written by the service layer alongside the mutation they describe and are
// never edited or created through the API.
type ActivityLog struct {
	gorm.Model
	TaskID  uint           `gorm:"not null;index:idx_task_ts,priority:1" json:"task_id"`
	UserID  uint           `gorm:"not null" json:"user_id"`
	Action  string         `gorm:"not null" json:"action"`
	Details datatypes.JSON `json:"details"`

	// Relations
	Task Task `json:"-"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
