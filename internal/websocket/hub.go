package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"obrolan/server/internal/contacts"
	"obrolan/server/internal/realtime"

	"github.com/sirupsen/logrus"
)

// Presence records whether a user is connected
type Presence interface {
	SetOnline(ctx context.Context, id string, online bool) error
}

// RoomMembers lists the members of a room
type RoomMembers interface {
	ListMemberIDs(ctx context.Context, roomID string) ([]string, error)
}

// Services are the dependencies the hub pushes from. Any field may be nil,
// which disables the matching feature.
type Services struct {
	Contacts *contacts.Manager
	Feed     realtime.Feed
	Presence Presence
	Rooms    RoomMembers
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients mapped by user ID
	Clients map[string]*Client

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	svc  Services
	log  logrus.FieldLogger
	done chan struct{}

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(svc Services, log logrus.FieldLogger) *Hub {
	return &Hub{
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		svc:        svc,
		log:        log,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.Clients {
				delete(h.Clients, id)
				client.shutdown()
			}
			h.mu.Unlock()
			return
		}
	}
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	// If user already has a connection, close the old one
	if existing, ok := h.Clients[client.ID]; ok && existing != client {
		existing.shutdown()
	}
	h.Clients[client.ID] = client
	h.mu.Unlock()

	go client.follow()

	h.setOnline(client.ID, true)
	h.broadcastPresence(client.ID, true)

	h.log.WithFields(logrus.Fields{
		"user":     client.ID,
		"uniqueId": client.UniqueID,
	}).Info("client connected")
}

// unregisterClient removes a client from the hub. A client that was already
// replaced by a newer connection is ignored.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current, ok := h.Clients[client.ID]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.Clients, client.ID)
	client.shutdown()
	h.mu.Unlock()

	h.setOnline(client.ID, false)
	h.broadcastPresence(client.ID, false)

	h.log.WithFields(logrus.Fields{
		"user":     client.ID,
		"uniqueId": client.UniqueID,
	}).Info("client disconnected")
}

func (h *Hub) setOnline(userID string, online bool) {
	if h.svc.Presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.svc.Presence.SetOnline(ctx, userID, online); err != nil {
		h.log.WithField("user", userID).WithError(err).Warn("failed to update online status")
	}
}

// broadcastPresence sends user's online/offline status to their friends
func (h *Hub) broadcastPresence(userID string, isOnline bool) {
	if h.svc.Contacts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	friends, err := h.svc.Contacts.FriendIDs(ctx, userID)
	if err != nil {
		h.log.WithField("user", userID).WithError(err).Warn("failed to get friends for presence")
		return
	}

	typ := EventUserOnline
	if !isOnline {
		typ = EventUserOffline
	}
	h.BroadcastToUsers(friends, NewMessage(typ, PresencePayload{
		UserID:   userID,
		IsOnline: isOnline,
		LastSeen: time.Now(),
	}))
}

// deliver queues data for client if it is still the registered connection
// of its user. A full queue drops the message.
func (h *Hub) deliver(client *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if current, ok := h.Clients[client.ID]; !ok || current != client {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		h.log.WithField("user", client.ID).Warn("client send queue full, dropping message")
		return false
	}
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID string, message WSMessage) {
	h.BroadcastToUsers([]string{userID}, message)
}

// BroadcastToUsers sends a message to multiple users
func (h *Hub) BroadcastToUsers(userIDs []string, message WSMessage) {
	if len(userIDs) == 0 {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		if client, ok := h.Clients[userID]; ok {
			select {
			case client.Send <- data:
			default:
				h.log.WithField("user", userID).Warn("client send queue full, dropping message")
			}
		}
	}
}

// BroadcastToRoom sends a message to all members of a room except one
func (h *Hub) BroadcastToRoom(ctx context.Context, roomID string, message WSMessage, excludeUserID string) {
	if h.svc.Rooms == nil {
		return
	}
	members, err := h.svc.Rooms.ListMemberIDs(ctx, roomID)
	if err != nil {
		h.log.WithField("room", roomID).WithError(err).Warn("failed to get room members")
		return
	}

	recipients := make([]string, 0, len(members))
	for _, id := range members {
		if id != excludeUserID {
			recipients = append(recipients, id)
		}
	}
	h.BroadcastToUsers(recipients, message)
}

// IsUserOnline checks if a user is currently connected
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.Clients[userID]
	return ok
}

// GetOnlineUsers returns a list of currently online user IDs
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userIDs := make([]string, 0, len(h.Clients))
	for userID := range h.Clients {
		userIDs = append(userIDs, userID)
	}

	return userIDs
}

// GetOnlineCount returns the number of currently connected clients
func (h *Hub) GetOnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.Clients)
}
