package handlers

import (
	"errors"
	"strconv"

	"obrolan/server/internal/contacts"
	"obrolan/server/internal/middleware"
	"obrolan/server/internal/rooms"
	"obrolan/server/internal/storage"
	"obrolan/server/internal/store"
	"obrolan/server/internal/translate"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Deps are the services the handlers call into
type Deps struct {
	Profiles      store.Profiles
	Notifications store.Notifications
	Contacts      *contacts.Manager
	Rooms         *rooms.Service
	Blobs         *storage.Local
	Translator    *translate.Client
	Log           logrus.FieldLogger
}

var (
	profiles      store.Profiles
	notifications store.Notifications
	contactMgr    *contacts.Manager
	roomSvc       *rooms.Service
	blobs         *storage.Local
	translator    *translate.Client
	log           logrus.FieldLogger = logrus.StandardLogger()
)

// Init wires the handlers to their services
func Init(d Deps) {
	profiles = d.Profiles
	notifications = d.Notifications
	contactMgr = d.Contacts
	roomSvc = d.Rooms
	blobs = d.Blobs
	translator = d.Translator
	if d.Log != nil {
		log = d.Log
	}
}

// userID returns the authenticated user set by AuthMiddleware
func userID(c *fiber.Ctx) string {
	return middleware.GetUserID(c)
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func ok(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// pagination reads page and limit, defaulting to page 1
func pagination(c *fiber.Ctx, defaultLimit int) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit, (page - 1) * limit
}

// contactError maps a relationship manager error to a response
func contactError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, contacts.ErrUnauthorized):
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, contacts.ErrValidation):
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	case errors.Is(err, contacts.ErrRelationshipExists):
		return fail(c, fiber.StatusConflict, "Relationship already exists")
	case errors.Is(err, contacts.ErrNotFoundOrForbidden):
		return fail(c, fiber.StatusNotFound, "Relationship not found")
	default:
		log.WithError(err).Error("contact operation failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}
}

// roomError maps a rooms service error to a response
func roomError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, rooms.ErrValidation):
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	case errors.Is(err, rooms.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Room not found")
	case errors.Is(err, rooms.ErrBlocked):
		return fail(c, fiber.StatusForbidden, "You cannot message this user")
	default:
		log.WithError(err).Error("room operation failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}
}
