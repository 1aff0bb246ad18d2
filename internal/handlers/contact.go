package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ContactTargetRequest names the other party of a contact operation
type ContactTargetRequest struct {
	TargetID string `json:"targetId"`
}

func parseTarget(c *fiber.Ctx) (string, error) {
	var req ContactTargetRequest
	if err := c.BodyParser(&req); err != nil {
		return "", err
	}
	return strings.TrimSpace(req.TargetID), nil
}

// GetRelationships returns the viewer's friends and incoming requests
func GetRelationships(c *fiber.Ctx) error {
	view := contactMgr.GetRelationshipView(c.UserContext(), userID(c))
	return ok(c, fiber.StatusOK, view)
}

// SearchContacts finds identities by name or email, tagged with their relation to the viewer
func SearchContacts(c *fiber.Ctx) error {
	query := c.Query("q")
	results := contactMgr.SearchIdentities(c.UserContext(), userID(c), query)
	return ok(c, fiber.StatusOK, results)
}

// SendContactRequest creates a pending request, or accepts the target's pending request
func SendContactRequest(c *fiber.Ctx) error {
	targetID, err := parseTarget(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if targetID == "" {
		return fail(c, fiber.StatusBadRequest, "targetId is required")
	}

	edge, err := contactMgr.SendContactRequest(c.UserContext(), userID(c), targetID)
	if err != nil {
		return contactError(c, err)
	}
	return ok(c, fiber.StatusCreated, edge)
}

// AcceptContactRequest accepts an incoming request
func AcceptContactRequest(c *fiber.Ctx) error {
	edge, err := contactMgr.AcceptContactRequest(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return contactError(c, err)
	}
	return ok(c, fiber.StatusOK, edge)
}

// DeclineContactRequest declines or cancels a request, or removes a friend
func DeclineContactRequest(c *fiber.Ctx) error {
	if err := contactMgr.DeclineContactRequest(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return contactError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Relationship removed",
	})
}

// BlockUser blocks another identity
func BlockUser(c *fiber.Ctx) error {
	targetID, err := parseTarget(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if targetID == "" {
		return fail(c, fiber.StatusBadRequest, "targetId is required")
	}

	edge, err := contactMgr.BlockIdentity(c.UserContext(), userID(c), targetID)
	if err != nil {
		return contactError(c, err)
	}
	return ok(c, fiber.StatusOK, edge)
}

// UnblockUser lifts a block the viewer placed
func UnblockUser(c *fiber.Ctx) error {
	if err := contactMgr.UnblockIdentity(c.UserContext(), userID(c), c.Params("userId")); err != nil {
		return contactError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User unblocked",
	})
}

// BlockInRoom blocks the other participant of a direct room
func BlockInRoom(c *fiber.Ctx) error {
	edge, err := contactMgr.BlockInRoom(c.UserContext(), userID(c), c.Params("roomId"))
	if err != nil {
		return contactError(c, err)
	}
	return ok(c, fiber.StatusOK, edge)
}

// UnblockInRoom lifts the viewer's block on the other participant of a direct room
func UnblockInRoom(c *fiber.Ctx) error {
	if err := contactMgr.UnblockInRoom(c.UserContext(), userID(c), c.Params("roomId")); err != nil {
		return contactError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User unblocked",
	})
}
