package controller

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"collabhub/models"
	"collabhub/utils"
)

type CommentController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
	Mailer   *utils.NotificationMailer
}

func NewCommentController(db *gorm.DB, logger *log.Logger, notifier *utils.Notifier, mailer *utils.NotificationMailer) *CommentController {
	return &CommentController{
		DB:       db,
		Logger:   logger,
		Notifier: notifier,
		Mailer:   mailer,
	}
}

type CommentRequest struct {
	Content  string `json:"content" validate:"required"`
	ParentID *uint  `json:"parent_id"`
}

// CreateComment adds a comment (or a reply) to a task. The comment, its
// activity log entry and any mention notifications are written in one
// transaction; mention emails go out after commit.
func (cc *CommentController) CreateComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	if err := cc.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}
	if !utils.IsTeamMember(cc.DB, user.ID, task.TeamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You must be a member of this team to comment", nil)
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Comment cannot be empty", nil)
	}
	if len(req.Content) > 2000 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Comment must not exceed 2000 characters", nil)
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := cc.DB.First(&parent, *req.ParentID).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Parent comment not found", nil)
		}
		if parent.TaskID != task.ID {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Parent comment belongs to a different task", nil)
		}
	}

	comment := models.Comment{
		TaskID:   task.ID,
		AuthorID: user.ID,
		Content:  req.Content,
		ParentID: req.ParentID,
	}

	outbox := cc.Mailer.NewOutbox()
	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}

		if err := utils.LogActivity(tx, task.ID, user.ID, models.ActionCommentAdded, map[string]interface{}{
			"comment_id": comment.ID,
			"is_reply":   comment.ParentID != nil,
		}); err != nil {
			return err
		}

		notifications, err := cc.Notifier.CreateMentionNotifications(tx, &comment, &task, user)
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
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create comment", err)
	}
	outbox.Flush()

	cc.DB.Preload("Author").First(&comment, comment.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"comment":     comment,
		"highlighted": utils.HighlightMentions(comment.Content),
	}))
}

// GetComments lists a task's comments as threads, top-level first with replies
// nested under each, both in chronological order.
func (cc *CommentController) GetComments(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	if !utils.HasPerm(cc.DB, user.ID, models.PermViewTask, models.TargetTask, taskID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to view this task", nil)
	}

	var comments []models.Comment
	err := cc.DB.
		Where("task_id = ? AND parent_id IS NULL", taskID).
		Order("created_at ASC").
		Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Preload("Author")
		}).
		Find(&comments).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list comments", err)
	}

	return c.JSON(utils.SuccessResponse(comments))
}

// DeleteComment removes a comment, its reply subtree and their attachments.
// Allowed for the comment's author or anyone holding delete permission on the
// task.
func (cc *CommentController) DeleteComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	commentID := utils.ParseUint(c.Params("id"))

	var comment models.Comment
	if err := cc.DB.First(&comment, commentID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Comment not found", nil)
	}

	if comment.AuthorID != user.ID &&
		!utils.HasPerm(cc.DB, user.ID, models.PermDeleteTask, models.TargetTask, comment.TaskID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to delete this comment", nil)
	}

	var storedPaths []string
	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		paths, err := utils.CascadeDeleteComment(tx, &comment)
		if err != nil {
			return err
		}
		storedPaths = paths
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete comment", err)
	}

	utils.DeleteStoredFiles(storedPaths)
	cc.Logger.Printf("Comment %d deleted by user %d", commentID, user.ID)
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}
