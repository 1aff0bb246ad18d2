package handlers

import (
	"context"

	"obrolan/server/internal/middleware"
	ws "obrolan/server/internal/websocket"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

var (
	// WSHub is the global WebSocket hub instance
	WSHub *ws.Hub
)

// InitWebSocket starts the WebSocket hub. It stops when ctx is done.
func InitWebSocket(ctx context.Context, svc ws.Services) {
	WSHub = ws.NewHub(svc, log.WithField("component", "websocket"))
	go WSHub.Run(ctx)
	log.Info("websocket hub initialized")
}

// WebSocketUpgrade checks if the request should be upgraded to WebSocket
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fail(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required")
}

// WebSocketHandler handles WebSocket connections
func WebSocketHandler(c *websocket.Conn) {
	userID, _ := c.Locals(middleware.LocalUserID).(string)
	uniqueID, _ := c.Locals(middleware.LocalUniqueID).(string)

	client := ws.NewClient(userID, uniqueID, c, WSHub)

	select {
	case WSHub.Register <- client:
	case <-WSHub.Done():
		return
	}

	go client.WritePump()
	client.ReadPump() // blocks until the connection closes
}

// GetWebSocketStats returns WebSocket connection statistics
func GetWebSocketStats(c *fiber.Ctx) error {
	if WSHub == nil {
		return fail(c, fiber.StatusServiceUnavailable, "WebSocket hub not initialized")
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"onlineUsers": WSHub.GetOnlineCount(),
		"userIds":     WSHub.GetOnlineUsers(),
	})
}

// pushToUsers sends an event to the connected users among ids
func pushToUsers(ids []string, typ ws.EventType, payload interface{}) {
	if WSHub == nil {
		return
	}
	WSHub.BroadcastToUsers(ids, ws.NewMessage(typ, payload))
}
