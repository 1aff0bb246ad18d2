package handlers

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"
	"obrolan/server/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	minPasswordLength = 8
	maxUniqueIDTries  = 10
)

// RegisterRequest represents registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// setAuthCookies issues a fresh access/refresh pair as HTTP-only cookies
func setAuthCookies(c *fiber.Ctx, p *models.Profile) error {
	token, err := utils.GenerateToken(p.ID, p.Email, p.UniqueID)
	if err != nil {
		return err
	}
	refreshToken, err := utils.GenerateRefreshToken(p.ID, p.Email, p.UniqueID)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   int(utils.AccessTokenTTL.Seconds()),
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   int(utils.RefreshTokenTTL.Seconds()),
	})
	return nil
}

func clearAuthCookies(c *fiber.Ctx) {
	for _, name := range []string{"token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			HTTPOnly: true,
			SameSite: "Lax",
			Expires:  time.Now().Add(-time.Hour),
		})
	}
}

// Register handles user registration
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return fail(c, fiber.StatusBadRequest, "Email, password, and name are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return fail(c, fiber.StatusBadRequest, "Password must be at least 8 characters")
	}

	ctx := c.UserContext()
	if _, err := profiles.GetProfileByEmail(ctx, req.Email); err == nil {
		return fail(c, fiber.StatusConflict, "Email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		log.WithError(err).Error("email lookup failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to hash password")
	}

	profile := &models.Profile{
		Email:    req.Email,
		Name:     req.Name,
		Password: hashedPassword,
	}
	for attempt := 0; ; attempt++ {
		if attempt == maxUniqueIDTries {
			return fail(c, fiber.StatusInternalServerError, "Failed to allocate unique ID")
		}
		profile.UniqueID = utils.GenerateUniqueID(req.Name)
		exists, err := profiles.UniqueIDExists(ctx, profile.UniqueID)
		if err != nil {
			log.WithError(err).Error("unique id lookup failed")
			return fail(c, fiber.StatusInternalServerError, "Database error")
		}
		if exists {
			continue
		}

		err = profiles.CreateProfile(ctx, profile)
		if errors.Is(err, store.ErrConflict) {
			// Either the email or the unique id was taken meanwhile.
			if _, lookupErr := profiles.GetProfileByEmail(ctx, req.Email); lookupErr == nil {
				return fail(c, fiber.StatusConflict, "Email already registered")
			}
			continue
		}
		if err != nil {
			log.WithError(err).Error("create profile failed")
			return fail(c, fiber.StatusInternalServerError, "Failed to create user")
		}
		break
	}

	if err := setAuthCookies(c, profile); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	log.WithField("user", profile.ID).Info("user registered")
	return ok(c, fiber.StatusCreated, profile.ToResponse())
}

// Login handles user login
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Email and password are required")
	}

	ctx := c.UserContext()
	profile, err := profiles.GetProfileByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		log.WithError(err).Error("login lookup failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	if !utils.CheckPassword(profile.Password, req.Password) {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	if err := profiles.SetOnline(ctx, profile.ID, true); err != nil {
		log.WithField("user", profile.ID).WithError(err).Warn("failed to mark user online")
	} else {
		profile.IsOnline = true
	}

	if err := setAuthCookies(c, profile); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	return ok(c, fiber.StatusOK, fiber.Map{"user": profile.ToResponse()})
}

// GetMe returns current authenticated user
func GetMe(c *fiber.Ctx) error {
	profile, err := profiles.GetProfile(c.UserContext(), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		log.WithError(err).Error("profile lookup failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}
	return ok(c, fiber.StatusOK, profile.ToResponse())
}

// Logout handles user logout
func Logout(c *fiber.Ctx) error {
	if err := profiles.SetOnline(c.UserContext(), userID(c), false); err != nil {
		log.WithField("user", userID(c)).WithError(err).Warn("failed to mark user offline")
	}

	clearAuthCookies(c)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// RefreshToken handles token refresh
func RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		return fail(c, fiber.StatusUnauthorized, "Refresh token not found")
	}

	claims, err := utils.ValidateToken(refreshToken)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid refresh token")
	}
	if claims.Type != utils.TokenRefresh {
		return fail(c, fiber.StatusUnauthorized, "Invalid token type")
	}

	profile, err := profiles.GetProfile(c.UserContext(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusUnauthorized, "User no longer exists")
	}
	if err != nil {
		log.WithError(err).Error("refresh lookup failed")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	if err := setAuthCookies(c, profile); err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Tokens refreshed successfully",
	})
}
