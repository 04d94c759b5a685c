package handlers

import (
	"eventhub/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetNotifications(c *fiber.Ctx) error {
	notifications, err := h.notifications.List(c.UserContext(), middleware.Caller(c).UserId)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(notifications),
		"data":    notifications})
}

func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	notification, err := h.notifications.MarkRead(c.UserContext(), middleware.Caller(c).UserId, id)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, notification)
}

func (h *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	if _, err := h.notifications.MarkAllRead(c.UserContext(), middleware.Caller(c).UserId); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "All notifications marked as read"})
}

func (h *Handler) DeleteNotification(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	if err := h.notifications.Delete(c.UserContext(), middleware.Caller(c).UserId, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Notification deleted"})
}
