package handlers

import (
	"errors"
	"strings"
	"unicode/utf8"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"

	"github.com/gofiber/fiber/v2"
)

const maxNameLength = 100

// UpdateProfileRequest represents profile settings body. Omitted fields are kept.
type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

// GetProfile returns a user's public profile
func GetProfile(c *fiber.Ctx) error {
	profile, err := profiles.GetProfile(c.UserContext(), c.Params("userId"))
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		log.WithError(err).Error("profile lookup failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}
	return ok(c, fiber.StatusOK, profile.ToResponse())
}

// UpdateProfile changes the caller's display name and presence status
func UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var update models.ProfileUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || utf8.RuneCountInString(name) > maxNameLength {
			return fail(c, fiber.StatusBadRequest, "Name must be 1-100 characters")
		}
		update.Name = &name
	}
	if req.Status != nil {
		if !models.IsValidPresence(*req.Status) {
			return fail(c, fiber.StatusBadRequest, "Status must be one of: online, away, busy, offline")
		}
		update.Status = req.Status
	}

	profile, err := profiles.UpdateProfile(c.UserContext(), userID(c), update)
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		log.WithError(err).Error("profile update failed")
		return fail(c, fiber.StatusInternalServerError, "Failed to update profile")
	}
	return ok(c, fiber.StatusOK, profile.ToResponse())
}
