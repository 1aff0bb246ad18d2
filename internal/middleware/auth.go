package middleware

import (
	"obrolan/server/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// Keys under which AuthMiddleware stores the caller in c.Locals
const (
	LocalUserID   = "userID"
	LocalEmail    = "email"
	LocalUniqueID = "uniqueID"
)

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// AuthMiddleware validates the access token cookie
func AuthMiddleware(c *fiber.Ctx) error {
	tokenString := c.Cookies("token")
	if tokenString == "" {
		return unauthorized(c, "Unauthorized - No token provided")
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		return unauthorized(c, "Unauthorized - Invalid token")
	}
	// A refresh token only opens /auth/refresh.
	if claims.Type != utils.TokenAccess {
		return unauthorized(c, "Unauthorized - Invalid token type")
	}

	c.Locals(LocalUserID, claims.UserID)
	c.Locals(LocalEmail, claims.Email)
	c.Locals(LocalUniqueID, claims.UniqueID)

	return c.Next()
}

// GetUserID gets user ID from context
func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals(LocalUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUserEmail gets user email from context
func GetUserEmail(c *fiber.Ctx) string {
	email, ok := c.Locals(LocalEmail).(string)
	if !ok {
		return ""
	}
	return email
}

// GetUniqueID gets unique ID from context
func GetUniqueID(c *fiber.Ctx) string {
	uniqueID, ok := c.Locals(LocalUniqueID).(string)
	if !ok {
		return ""
	}
	return uniqueID
}
