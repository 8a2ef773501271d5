package utils

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"collabhub/models"
)

// Notifier creates and queries in-app notifications. All Create* methods are
// expected to run inside the same transaction as the write that triggers them
// so a rolled-back mutation never leaves notifications behind.
type Notifier struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewNotifier(db *gorm.DB, logger *log.Logger) *Notifier {
	return &Notifier{
		DB:     db,
		Logger: logger,
	}
}

// Create persists one notification.
func (n *Notifier) Create(tx *gorm.DB, recipientID, senderID uint, notificationType, message, targetType string, targetID uint) (*models.Notification, error) {
	notification := models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        notificationType,
		Message:     message,
		TargetType:  targetType,
		TargetID:    targetID,
	}
	if err := tx.Create(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// CreateMentionNotifications creates one notification per team member
// mentioned in the comment. The comment's author never receives one, even if
// self-mentioned; mentions of non-members are dropped by the parser.
func (n *Notifier) CreateMentionNotifications(tx *gorm.DB, comment *models.Comment, task *models.Task, author *models.User) ([]models.Notification, error) {
	mentioned, err := MentionedUsers(tx, comment.Content, task.TeamID)
	if err != nil {
		return nil, err
	}

	var notifications []models.Notification
	for _, user := range mentioned {
		if user.ID == comment.AuthorID {
			continue
		}
		message := fmt.Sprintf("%s mentioned you in a comment on '%s'", author.Username, task.Title)
		notification, err := n.Create(tx, user.ID, comment.AuthorID,
			models.NotificationMention, message, models.TargetComment, comment.ID)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *notification)
	}
	return notifications, nil
}

// CreateAssignmentNotification notifies the task's assignee. Returns nil when
// the task is unassigned or the actor assigned the task to themselves.
func (n *Notifier) CreateAssignmentNotification(tx *gorm.DB, task *models.Task, actor *models.User) (*models.Notification, error) {
	if task.AssignedToID == nil {
		return nil, nil
	}
	if *task.AssignedToID == actor.ID {
		return nil, nil
	}

	message := fmt.Sprintf("%s assigned you to task '%s'", actor.Username, task.Title)
	return n.Create(tx, *task.AssignedToID, actor.ID,
		models.NotificationAssignment, message, models.TargetTask, task.ID)
}

// CreateTeamAddedNotification notifies a user added to a team by an existing
// member. Returns nil when users add themselves (team creation).
func (n *Notifier) CreateTeamAddedNotification(tx *gorm.DB, membership *models.TeamMembership, team *models.Team, actor *models.User) (*models.Notification, error) {
	if membership.UserID == actor.ID {
		return nil, nil
	}

	message := fmt.Sprintf("%s added you to team '%s'", actor.Username, team.Name)
	return n.Create(tx, membership.UserID, actor.ID,
		models.NotificationTeamAdded, message, models.TargetTeam, team.ID)
}

// CreateFileUploadNotifications notifies the task's creator and assignee about
// a new attachment, excluding the uploader.
func (n *Notifier) CreateFileUploadNotifications(tx *gorm.DB, upload *models.FileUpload, task *models.Task, uploader *models.User) ([]models.Notification, error) {
	recipients := map[uint]bool{task.CreatedByID: true}
	if task.AssignedToID != nil {
		recipients[*task.AssignedToID] = true
	}
	delete(recipients, uploader.ID)

	message := fmt.Sprintf("%s uploaded '%s' to task '%s'", uploader.Username, upload.FileName, task.Title)

	var notifications []models.Notification
	for recipientID := range recipients {
		notification, err := n.Create(tx, recipientID, uploader.ID,
			models.NotificationFileUploaded, message, models.TargetTask, task.ID)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *notification)
	}
	return notifications, nil
}

// MarkAsRead marks one notification read, scoped to its recipient. Returns
// nil, without error, when the notification does not exist or belongs to
// someone else.
func (n *Notifier) MarkAsRead(notificationID, userID uint) (*models.Notification, error) {
	var notification models.Notification
	err := n.DB.Where("id = ? AND recipient_id = ?", notificationID, userID).First(&notification).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	notification.IsRead = true
	if err := n.DB.Save(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// MarkAllAsRead marks every unread notification for the user read and returns
// the number updated.
func (n *Notifier) MarkAllAsRead(userID uint) (int64, error) {
	result := n.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// UnreadCount returns the user's unread notification count.
func (n *Notifier) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := n.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// Pending returns the user's unread notifications created within the sliding
// window, oldest first. Intended for external batch-email sweep jobs.
func (n *Notifier) Pending(userID uint, window time.Duration) ([]models.Notification, error) {
	cutoff := time.Now().Add(-window)

	var notifications []models.Notification
	err := n.DB.
		Where("recipient_id = ? AND is_read = ? AND created_at >= ?", userID, false, cutoff).
		Order("created_at ASC").
		Find(&notifications).Error
	return notifications, err
}

// List returns the user's notifications newest first.
func (n *Notifier) List(userID uint, page, limit int) ([]models.Notification, int64, error) {
	var total int64
	if err := n.DB.Model(&models.Notification{}).
		Where("recipient_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := n.DB.
		Preload("Sender").
		Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	return notifications, total, err
}
