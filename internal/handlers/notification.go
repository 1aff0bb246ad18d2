package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// MarkReadRequest lists notifications to mark read. Empty marks all.
type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

// GetNotifications lists the caller's notifications, newest first
func GetNotifications(c *fiber.Ctx) error {
	_, limit, _ := pagination(c, 50)

	list, err := notifications.ListNotifications(c.UserContext(), userID(c), limit)
	if err != nil {
		log.WithError(err).Error("list notifications failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}
	return ok(c, fiber.StatusOK, list)
}

// MarkNotificationsRead marks the given (or all) notifications as read
func MarkNotificationsRead(c *fiber.Ctx) error {
	var req MarkReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	n, err := notifications.MarkNotificationsRead(c.UserContext(), userID(c), req.IDs)
	if err != nil {
		log.WithError(err).Error("mark notifications read failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}
	return ok(c, fiber.StatusOK, fiber.Map{"updated": n})
}
