package utils

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"collabhub/models"
)

// LogActivity appends one audit-trail entry for a task. Runs in the caller's
// transaction so the log row lives or dies with the mutation it describes.
func LogActivity(tx *gorm.DB, taskID, userID uint, action string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}

	entry := models.ActivityLog{
		TaskID:  taskID,
		UserID:  userID,
		Action:  action,
		Details: datatypes.JSON(payload),
	}
	return tx.Create(&entry).Error
}

// TaskActivity returns a task's audit trail in chronological order.
func TaskActivity(db *gorm.DB, taskID uint) ([]models.ActivityLog, error) {
	var logs []models.ActivityLog
	err := db.
		Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
