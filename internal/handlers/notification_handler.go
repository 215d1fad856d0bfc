package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/planora-app/planora-backend/internal/httpx"
	"github.com/planora-app/planora-backend/internal/service"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	filter := c.Query("filter", service.NotificationFilterAll)
	if filter != service.NotificationFilterAll && filter != service.NotificationFilterUnread {
		return httpx.BadRequest(c, "invalid_filter", "filter must be all or unread")
	}

	limit := 50
	if l := c.QueryInt("limit", 50); l > 0 && l <= 100 {
		limit = l
	}

	notifications, err := h.notificationService.ListFor(userID, filter, limit)
	if err != nil {
		return httpx.Internal(c, "fetch_notifications_failed")
	}

	responses := make([]interface{}, len(notifications))
	for i, n := range notifications {
		responses[i] = n.ToResponse()
	}

	return c.JSON(fiber.Map{
		"notifications": responses,
		"count":         len(notifications),
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	notificationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || notificationID == 0 {
		return httpx.BadRequest(c, "invalid_notification_id", "Invalid notification id")
	}

	if err := h.notificationService.MarkRead(uint(notificationID), userID); err != nil {
		return httpx.Internal(c, "mark_read_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	marked, err := h.notificationService.MarkAllRead(userID)
	if err != nil {
		return httpx.Internal(c, "mark_all_read_failed")
	}

	return c.JSON(fiber.Map{"marked": marked})
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	count, err := h.notificationService.UnreadCount(userID)
	if err != nil {
		return httpx.Internal(c, "fetch_unread_failed")
	}

	return c.JSON(fiber.Map{"unread": count})
}
