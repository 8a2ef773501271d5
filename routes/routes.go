package routes

import (
	"log"
	"os"

	controller "collabhub/controllers"
	"collabhub/middleware"
	"collabhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize logger
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints, rate limited per client IP
	auth.Post("/register", middleware.AuthRateLimiter(), controller.Register)
	auth.Post("/login", middleware.AuthRateLimiter(), controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	// Shared notification plumbing
	notifier := utils.NewNotifier(db, log.New(os.Stdout, "NOTIFY: ", log.LstdFlags))
	mailer := utils.NewNotificationMailer(log.New(os.Stdout, "MAILER: ", log.LstdFlags))

	// Initialize controllers with their respective loggers
	teamController := controller.NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags), notifier, mailer)
	taskController := controller.NewTaskController(db, log.New(os.Stdout, "TASK: ", log.LstdFlags), notifier, mailer)
	commentController := controller.NewCommentController(db, log.New(os.Stdout, "COMMENT: ", log.LstdFlags), notifier, mailer)
	fileController := controller.NewFileController(db, log.New(os.Stdout, "FILE: ", log.LstdFlags), notifier, mailer)
	notificationController := controller.NewNotificationController(db, log.New(os.Stdout, "NOTIFICATION: ", log.LstdFlags), notifier, mailer)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Team routes
	team := api.Group("/teams")
	team.Post("/", teamController.CreateTeam)
	team.Get("/", teamController.GetTeams)
	team.Get("/:id", teamController.GetTeam)
	team.Put("/:id", teamController.UpdateTeam)
	team.Delete("/:id", teamController.DeleteTeam)
	team.Post("/:id/members", teamController.AddMember)
	team.Delete("/:id/members/:userId", teamController.RemoveMember)
	team.Put("/:id/members/:userId/role", teamController.ChangeMemberRole)

	// Task routes
	task := api.Group("/tasks")
	task.Post("/", taskController.CreateTask)
	task.Get("/", taskController.GetTasks)
	task.Get("/:id", taskController.GetTask)
	task.Put("/:id", taskController.UpdateTask)
	task.Delete("/:id", taskController.DeleteTask)
	task.Post("/:id/comments", commentController.CreateComment)
	task.Get("/:id/comments", commentController.GetComments)

	// Comment routes
	api.Delete("/comments/:id", commentController.DeleteComment)

	// File routes
	file := api.Group("/files")
	file.Post("/", fileController.UploadFile)
	file.Get("/", fileController.GetFiles)
	file.Get("/:id/download", fileController.DownloadFile)
	file.Delete("/:id", fileController.DeleteFile)

	// Notification routes
	notification := api.Group("/notifications")
	notification.Get("/", notificationController.GetNotifications)
	notification.Get("/unread-count", notificationController.GetUnreadCount)
	notification.Post("/:id/read", notificationController.MarkRead)
	notification.Post("/read-all", notificationController.MarkAllRead)
	notification.Post("/email-digest", notificationController.EmailDigest)

	// WebSocket route for the live notification feed
	notification.Get("/ws", notificationController.Feed())

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
