package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"collabhub/models"
	"collabhub/utils"
)

type FileController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
	Mailer   *utils.NotificationMailer
}

func NewFileController(db *gorm.DB, logger *log.Logger, notifier *utils.Notifier, mailer *utils.NotificationMailer) *FileController {
	return &FileController{
		DB:       db,
		Logger:   logger,
		Notifier: notifier,
		Mailer:   mailer,
	}
}

// resolveTarget loads the target object and returns the task it belongs to
// (the task itself, or the comment's task).
func (fc *FileController) resolveTarget(targetType string, targetID uint) (*models.Task, error) {
	switch targetType {
	case models.TargetTask:
		var task models.Task
		if err := fc.DB.First(&task, targetID).Error; err != nil {
			return nil, err
		}
		return &task, nil
	case models.TargetComment:
		var comment models.Comment
		if err := fc.DB.First(&comment, targetID).Error; err != nil {
			return nil, err
		}
		var task models.Task
		if err := fc.DB.First(&task, comment.TaskID).Error; err != nil {
			return nil, err
		}
		return &task, nil
	default:
		return nil, gorm.ErrRecordNotFound
	}
}

// UploadFile attaches a multipart file to a task or a comment. The upload row,
// the activity entry and the notifications are written in one transaction;
// notification emails go out after commit. The stored file is removed again if
// the transaction fails.
func (fc *FileController) UploadFile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	targetType := c.FormValue("target_type")
	if targetType != models.TargetTask && targetType != models.TargetComment {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "target_type must be 'task' or 'comment'", nil)
	}
	targetID := utils.ParseUint(c.FormValue("target_id"))

	task, err := fc.resolveTarget(targetType, targetID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Upload target not found", nil)
	}
	if !utils.IsTeamMember(fc.DB, user.ID, task.TeamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You must be a member of this team to upload files", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No file provided", err)
	}

	storedPath, err := utils.SaveUpload(c, fileHeader)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	upload := models.FileUpload{
		FileName:     fileHeader.Filename,
		StoredPath:   storedPath,
		Size:         fileHeader.Size,
		UploadedByID: user.ID,
		TargetType:   targetType,
		TargetID:     targetID,
	}

	outbox := fc.Mailer.NewOutbox()
	err = fc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&upload).Error; err != nil {
			return err
		}

		if targetType == models.TargetTask {
			if err := utils.LogActivity(tx, task.ID, user.ID, models.ActionFileUploaded, map[string]interface{}{
				"file_name": upload.FileName,
				"size":      upload.Size,
			}); err != nil {
				return err
			}

			notifications, err := fc.Notifier.CreateFileUploadNotifications(tx, &upload, task, user)
			if err != nil {
				return err
			}
			for _, notification := range notifications {
				var recipient models.User
				if err := tx.First(&recipient, notification.RecipientID).Error; err != nil {
					return err
				}
				outbox.Add(notification, recipient, *user)
			}
		}
		return nil
	})
	if err != nil {
		utils.DeleteStoredFile(storedPath)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save upload", err)
	}
	outbox.Flush()

	fc.Logger.Printf("File %d (%s) uploaded by user %d to %s %d",
		upload.ID, upload.FileName, user.ID, targetType, targetID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(upload))
}

// GetFiles lists the attachments of a task or comment.
func (fc *FileController) GetFiles(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	targetType := c.Query("target_type")
	if targetType != models.TargetTask && targetType != models.TargetComment {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "target_type must be 'task' or 'comment'", nil)
	}
	targetID := utils.ParseUint(c.Query("target_id"))

	task, err := fc.resolveTarget(targetType, targetID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Target not found", nil)
	}
	if !utils.HasPerm(fc.DB, user.ID, models.PermViewTask, models.TargetTask, task.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to view these files", nil)
	}

	var files []models.FileUpload
	if err := fc.DB.
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at DESC").
		Preload("UploadedBy").
		Find(&files).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list files", err)
	}

	return c.JSON(utils.SuccessResponse(files))
}

// DownloadFile streams a stored attachment with its original name.
func (fc *FileController) DownloadFile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	fileID := utils.ParseUint(c.Params("id"))

	var upload models.FileUpload
	if err := fc.DB.First(&upload, fileID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "File not found", nil)
	}

	task, err := fc.resolveTarget(upload.TargetType, upload.TargetID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "File target not found", nil)
	}
	if !utils.HasPerm(fc.DB, user.ID, models.PermViewTask, models.TargetTask, task.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to download this file", nil)
	}

	return c.Download(utils.AbsUploadPath(upload.StoredPath), upload.FileName)
}

// DeleteFile removes an attachment. Allowed for the uploader or anyone holding
// delete permission on the owning task. The stored file is unlinked after the
// row delete commits.
func (fc *FileController) DeleteFile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	fileID := utils.ParseUint(c.Params("id"))

	var upload models.FileUpload
	if err := fc.DB.First(&upload, fileID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "File not found", nil)
	}

	task, err := fc.resolveTarget(upload.TargetType, upload.TargetID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "File target not found", nil)
	}
	if upload.UploadedByID != user.ID &&
		!utils.HasPerm(fc.DB, user.ID, models.PermDeleteTask, models.TargetTask, task.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to delete this file", nil)
	}

	if err := fc.DB.Unscoped().Delete(&upload).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete file", err)
	}

	utils.DeleteStoredFile(upload.StoredPath)
	fc.Logger.Printf("File %d deleted by user %d", fileID, user.ID)
	return c.JSON(fiber.Map{"message": "File deleted"})
}
