package controller

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"collabhub/models"
	"collabhub/utils"
)

type TaskController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
	Mailer   *utils.NotificationMailer
}

func NewTaskController(db *gorm.DB, logger *log.Logger, notifier *utils.Notifier, mailer *utils.NotificationMailer) *TaskController {
	return &TaskController{
		DB:       db,
		Logger:   logger,
		Notifier: notifier,
		Mailer:   mailer,
	}
}

type TaskRequest struct {
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description" validate:"omitempty"`
	TeamID       uint       `json:"team_id" validate:"required"`
	AssignedToID *uint      `json:"assigned_to_id"`
	Status       string     `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW DONE"`
	Deadline     *time.Time `json:"deadline"`
}

// validateTask applies the form-level rules: trimmed title between 3 and 200
// characters, description up to 5000, assignee a member of the team, deadline
// not in the past for new tasks.
func (tc *TaskController) validateTask(req *TaskRequest, isNew bool) string {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	if len(req.Title) < 3 {
		return "Task title must be at least 3 characters long"
	}
	if len(req.Title) > 200 {
		return "Task title must not exceed 200 characters"
	}
	if len(req.Description) > 5000 {
		return "Task description must not exceed 5000 characters"
	}
	if req.Status != "" && !models.ValidStatus(req.Status) {
		return "Invalid task status"
	}
	if req.AssignedToID != nil && !utils.IsTeamMember(tc.DB, *req.AssignedToID, req.TeamID) {
		return "The assigned user must be a member of the selected team"
	}
	if isNew && req.Deadline != nil && req.Deadline.Before(time.Now().Truncate(24*time.Hour)) {
		return "Deadline cannot be in the past"
	}
	return ""
}

// CreateTask persists a task with its activity log entry, permission grants
// and (when assigned) assignment notification in one transaction. The email
// goes out only after the transaction commits.
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if !utils.IsTeamMember(tc.DB, user.ID, req.TeamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You must be a member of this team to create tasks", nil)
	}
	if msg := tc.validateTask(&req, true); msg != "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, msg, nil)
	}

	status := req.Status
	if status == "" {
		status = models.StatusTodo
	}

	task := models.Task{
		Title:        req.Title,
		Description:  req.Description,
		TeamID:       req.TeamID,
		CreatedByID:  user.ID,
		AssignedToID: req.AssignedToID,
		Status:       status,
		Deadline:     req.Deadline,
	}

	outbox := tc.Mailer.NewOutbox()
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}

		if err := utils.LogActivity(tx, task.ID, user.ID, models.ActionTaskCreated, map[string]interface{}{
			"title":          task.Title,
			"status":         task.Status,
			"assigned_to_id": task.AssignedToID,
		}); err != nil {
			return err
		}

		if err := utils.GrantTaskPerms(tx, &task); err != nil {
			return err
		}

		notification, err := tc.Notifier.CreateAssignmentNotification(tx, &task, user)
		if err != nil {
			return err
		}
		if notification != nil {
			var assignee models.User
			if err := tx.First(&assignee, *task.AssignedToID).Error; err != nil {
				return err
			}
			outbox.Add(*notification, assignee, *user)
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create task", err)
	}
	outbox.Flush()

	tc.Logger.Printf("Task %d created in team %d by user %d", task.ID, task.TeamID, user.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(task))
}

// UpdateTask applies changes under change permission. A new assignee who is
// not the actor gets an assignment notification.
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermChangeTask, models.TargetTask, taskID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to edit this task", nil)
	}

	var task models.Task
	if err := tc.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	req.TeamID = task.TeamID // the team is fixed at creation
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if msg := tc.validateTask(&req, false); msg != "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, msg, nil)
	}

	previousAssignee := task.AssignedToID

	task.Title = req.Title
	task.Description = req.Description
	task.AssignedToID = req.AssignedToID
	task.Deadline = req.Deadline
	if req.Status != "" {
		task.Status = req.Status
	}

	assigneeChanged := !uintPtrEqual(previousAssignee, task.AssignedToID)

	outbox := tc.Mailer.NewOutbox()
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		if err := utils.LogActivity(tx, task.ID, user.ID, models.ActionTaskUpdated, map[string]interface{}{
			"title":          task.Title,
			"status":         task.Status,
			"assigned_to_id": task.AssignedToID,
		}); err != nil {
			return err
		}

		if assigneeChanged {
			notification, err := tc.Notifier.CreateAssignmentNotification(tx, &task, user)
			if err != nil {
				return err
			}
			if notification != nil {
				var assignee models.User
				if err := tx.First(&assignee, *task.AssignedToID).Error; err != nil {
					return err
				}
				outbox.Add(*notification, assignee, *user)
			}
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update task", err)
	}
	outbox.Flush()

	return c.JSON(utils.SuccessResponse(task))
}

// GetTask returns a task with its comments, attachments and audit trail.
func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermViewTask, models.TargetTask, taskID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to view this task", nil)
	}

	var task models.Task
	err := tc.DB.
		Preload("CreatedBy").
		Preload("AssignedTo").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Where("parent_id IS NULL").Order("created_at ASC").Preload("Author").
				Preload("Replies", func(db *gorm.DB) *gorm.DB {
					return db.Order("created_at ASC").Preload("Author")
				})
		}).
		First(&task, taskID).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	var files []models.FileUpload
	tc.DB.Where("target_type = ? AND target_id = ?", models.TargetTask, taskID).
		Order("created_at DESC").Find(&files)

	activity, err := utils.TaskActivity(tc.DB, taskID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load activity", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"task":     task,
		"files":    files,
		"activity": activity,
	}))
}

// GetTasks lists tasks across the caller's teams with optional filters.
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := utils.UserTaskScope(tc.DB, user.ID)

	if teamID := c.Query("team_id"); teamID != "" {
		query = query.Where("team_id = ?", utils.ParseUint(teamID))
	}
	if status := c.Query("status"); status != "" {
		if !models.ValidStatus(status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid task status", nil)
		}
		query = query.Where("status = ?", status)
	}
	if assignee := c.Query("assigned_to_id"); assignee != "" {
		query = query.Where("assigned_to_id = ?", utils.ParseUint(assignee))
	}

	var tasks []models.Task
	if err := query.Order("created_at DESC").Preload("AssignedTo").Find(&tasks).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tasks", err)
	}
	return c.JSON(utils.SuccessResponse(tasks))
}

// DeleteTask removes the task and everything attached to it. Stored files are
// unlinked from disk only after the transaction commits.
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermDeleteTask, models.TargetTask, taskID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to delete this task", nil)
	}

	var task models.Task
	if err := tc.DB.First(&task, taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	var storedPaths []string
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		paths, err := utils.CascadeDeleteTask(tx, &task)
		if err != nil {
			return err
		}
		storedPaths = paths
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task", err)
	}

	utils.DeleteStoredFiles(storedPaths)
	tc.Logger.Printf("Task %d deleted by user %d", taskID, user.ID)
	return c.JSON(fiber.Map{"message": "Task deleted"})
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
