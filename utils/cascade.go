package utils

import (
	"gorm.io/gorm"

	"collabhub/models"
)

// CascadeDeleteTask removes a task and everything hanging off it: comments
// and their replies, file uploads on the task and its comments, activity
// logs, object permissions and notifications referencing any of them. Runs in
// the caller's transaction and returns the stored paths of removed files so
// the caller can delete them from disk after commit.
func CascadeDeleteTask(tx *gorm.DB, task *models.Task) ([]string, error) {
	var commentIDs []uint
	if err := tx.Model(&models.Comment{}).
		Where("task_id = ?", task.ID).
		Pluck("id", &commentIDs).Error; err != nil {
		return nil, err
	}

	var storedPaths []string

	// Files attached to the task itself.
	taskPaths, err := deleteAttachedFiles(tx, models.TargetTask, []uint{task.ID})
	if err != nil {
		return nil, err
	}
	storedPaths = append(storedPaths, taskPaths...)

	if len(commentIDs) > 0 {
		commentPaths, err := deleteAttachedFiles(tx, models.TargetComment, commentIDs)
		if err != nil {
			return nil, err
		}
		storedPaths = append(storedPaths, commentPaths...)

		if err := tx.Unscoped().
			Where("target_type = ? AND target_id IN ?", models.TargetComment, commentIDs).
			Delete(&models.Notification{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Unscoped().Where("task_id = ?", task.ID).Delete(&models.Comment{}).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Unscoped().Where("task_id = ?", task.ID).Delete(&models.ActivityLog{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Unscoped().
		Where("target_type = ? AND target_id = ?", models.TargetTask, task.ID).
		Delete(&models.Notification{}).Error; err != nil {
		return nil, err
	}
	if err := RemoveObjectPerms(tx, models.TargetTask, task.ID); err != nil {
		return nil, err
	}
	if err := tx.Unscoped().Delete(task).Error; err != nil {
		return nil, err
	}
	return storedPaths, nil
}

// CascadeDeleteComment removes a comment together with its replies, their
// attachments and the notifications that reference them. Returns stored paths
// for post-commit disk cleanup.
func CascadeDeleteComment(tx *gorm.DB, comment *models.Comment) ([]string, error) {
	// Collect the whole reply subtree, level by level.
	ids := []uint{comment.ID}
	frontier := []uint{comment.ID}
	for len(frontier) > 0 {
		var replyIDs []uint
		if err := tx.Model(&models.Comment{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &replyIDs).Error; err != nil {
			return nil, err
		}
		ids = append(ids, replyIDs...)
		frontier = replyIDs
	}

	storedPaths, err := deleteAttachedFiles(tx, models.TargetComment, ids)
	if err != nil {
		return nil, err
	}

	if err := tx.Unscoped().
		Where("target_type = ? AND target_id IN ?", models.TargetComment, ids).
		Delete(&models.Notification{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Unscoped().Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return nil, err
	}
	return storedPaths, nil
}

// deleteAttachedFiles removes FileUpload rows for the targets and returns
// their stored paths.
func deleteAttachedFiles(tx *gorm.DB, targetType string, targetIDs []uint) ([]string, error) {
	var paths []string
	if err := tx.Model(&models.FileUpload{}).
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Pluck("stored_path", &paths).Error; err != nil {
		return nil, err
	}
	if err := tx.Unscoped().
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Delete(&models.FileUpload{}).Error; err != nil {
		return nil, err
	}
	return paths, nil
}
