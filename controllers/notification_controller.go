package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"collabhub/config"
	"collabhub/models"
	"collabhub/utils"
)

type NotificationController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
	Mailer   *utils.NotificationMailer
}

func NewNotificationController(db *gorm.DB, logger *log.Logger, notifier *utils.Notifier, mailer *utils.NotificationMailer) *NotificationController {
	return &NotificationController{
		DB:       db,
		Logger:   logger,
		Notifier: notifier,
		Mailer:   mailer,
	}
}

// GetNotifications lists the caller's notifications newest first, with the
// unread count alongside.
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, total, err := nc.Notifier.List(user.ID, page, limit)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list notifications", err)
	}

	unread, err := nc.Notifier.UnreadCount(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count notifications", err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"data":         notifications,
		"total":        total,
		"unread_count": unread,
		"page":         page,
		"limit":        limit,
	})
}

// MarkRead marks one notification read. Marking a notification that does not
// exist, or that belongs to someone else, succeeds silently.
func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	notificationID := utils.ParseUint(c.Params("id"))

	notification, err := nc.Notifier.MarkAsRead(notificationID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to mark notification read", err)
	}
	if notification == nil {
		return c.JSON(fiber.Map{"message": "Notification marked as read"})
	}
	return c.JSON(utils.SuccessResponse(notification))
}

// MarkAllRead marks every unread notification read and reports how many.
func (nc *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	updated, err := nc.Notifier.MarkAllAsRead(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to mark notifications read", err)
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"marked_count": updated,
	})
}

// GetUnreadCount returns the caller's unread notification count.
func (nc *NotificationController) GetUnreadCount(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	unread, err := nc.Notifier.UnreadCount(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count notifications", err)
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"unread_count": unread,
	})
}

// EmailDigest sends the caller one batch email covering their unread
// notifications from the configured batch window. Intended to be hit by an
// external scheduler on the recipient's behalf; a window with nothing in it
// sends no email.
func (nc *NotificationController) EmailDigest(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	window := time.Duration(config.AppConfig.BatchWindowSecs) * time.Second
	pending, err := nc.Notifier.Pending(user.ID, window)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to collect pending notifications", err)
	}
	if len(pending) == 0 {
		return c.JSON(fiber.Map{
			"success": true,
			"sent":    0,
		})
	}

	nc.Mailer.SendBatch(user, pending)
	return c.JSON(fiber.Map{
		"success": true,
		"sent":    len(pending),
	})
}

type notificationFeedMessage struct {
	UnreadCount int64                 `json:"unread_count"`
	New         []models.Notification `json:"new,omitempty"`
}

// Feed is the websocket handler behind /ws/notifications. It polls the
// caller's notifications every few seconds and pushes the unread count plus
// anything created since the last push. The connection closes when the client
// goes away.
func (nc *NotificationController) Feed() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			conn.Close()
			return
		}

		// Drain client frames so pings and close frames are processed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		lastPush := time.Now()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}

			unread, err := nc.Notifier.UnreadCount(userID)
			if err != nil {
				nc.Logger.Printf("Notification feed query failed for user %d: %v", userID, err)
				return
			}

			var fresh []models.Notification
			if err := nc.DB.
				Preload("Sender").
				Where("recipient_id = ? AND created_at > ?", userID, lastPush).
				Order("created_at ASC").
				Find(&fresh).Error; err != nil {
				nc.Logger.Printf("Notification feed query failed for user %d: %v", userID, err)
				return
			}
			lastPush = time.Now()

			if err := conn.WriteJSON(notificationFeedMessage{
				UnreadCount: unread,
				New:         fresh,
			}); err != nil {
				return
			}
		}
	})
}
