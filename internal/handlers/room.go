package handlers

import (
	"strings"

	ws "obrolan/server/internal/websocket"

	"github.com/gofiber/fiber/v2"
)

// CreateGroupRequest represents create group request body
type CreateGroupRequest struct {
	Name      string   `json:"name"`
	Icon      *string  `json:"icon"`
	MemberIDs []string `json:"memberIds"`
}

// DirectRoomRequest names the other participant of a 1:1 room
type DirectRoomRequest struct {
	UserID string `json:"userId"`
}

// SendMessageRequest represents send message request body
type SendMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// CreateGroup creates a group room with the caller and the listed members
func CreateGroup(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	room, err := roomSvc.CreateGroup(c.UserContext(), userID(c), req.Name, req.Icon, req.MemberIDs)
	if err != nil {
		return roomError(c, err)
	}
	return ok(c, fiber.StatusCreated, room)
}

// GetRooms lists the caller's rooms, most recently active first
func GetRooms(c *fiber.Ctx) error {
	page, limit, offset := pagination(c, 20)

	list, err := roomSvc.ListRooms(c.UserContext(), userID(c), limit, offset)
	if err != nil {
		return roomError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
		},
	})
}

// DirectRoom returns the 1:1 room between the caller and another user, creating it on first use
func DirectRoom(c *fiber.Ctx) error {
	var req DirectRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	room, err := roomSvc.DirectRoom(c.UserContext(), userID(c), strings.TrimSpace(req.UserID))
	if err != nil {
		return roomError(c, err)
	}
	return ok(c, fiber.StatusOK, room)
}

// VaultRoom returns the caller's private notes room
func VaultRoom(c *fiber.Ctx) error {
	room, err := roomSvc.VaultRoom(c.UserContext(), userID(c))
	if err != nil {
		return roomError(c, err)
	}
	return ok(c, fiber.StatusOK, room)
}

// GetRoom returns room details with members
func GetRoom(c *fiber.Ctx) error {
	room, err := roomSvc.Room(c.UserContext(), userID(c), c.Params("roomId"))
	if err != nil {
		return roomError(c, err)
	}
	return ok(c, fiber.StatusOK, room)
}

// SendMessage posts a message into a room and pushes it to the other members
func SendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	ctx := c.UserContext()
	roomID := c.Params("roomId")
	senderID := userID(c)

	msg, err := roomSvc.SendMessage(ctx, senderID, roomID, req.Content, req.Type)
	if err != nil {
		return roomError(c, err)
	}

	recipients, err := roomSvc.Recipients(ctx, roomID, senderID)
	if err != nil {
		log.WithField("room", roomID).WithError(err).Warn("failed to resolve message recipients")
	} else {
		pushToUsers(recipients, ws.EventMessageReceived, msg)
	}

	return ok(c, fiber.StatusCreated, msg)
}

// GetMessages returns a page of room messages, newest first
func GetMessages(c *fiber.Ctx) error {
	page, limit, offset := pagination(c, 50)

	list, err := roomSvc.ListMessages(c.UserContext(), userID(c), c.Params("roomId"), limit, offset)
	if err != nil {
		return roomError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
		},
	})
}
