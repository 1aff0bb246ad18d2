package websocket

import (
	"time"

	"obrolan/server/internal/models"
)

// EventType represents different WebSocket event types
type EventType string

const (
	// Message events
	EventMessageReceived EventType = "message_received"

	// Typing events
	EventTypingStart EventType = "typing_start"
	EventTypingStop  EventType = "typing_stop"

	// Presence events
	EventUserOnline  EventType = "user_online"
	EventUserOffline EventType = "user_offline"

	// Contact events
	EventContactsUpdated        EventType = "contacts_updated"
	EventContactRequestReceived EventType = "contact_request_received"
	EventContactSearch          EventType = "contact_search"
	EventContactSearchResult    EventType = "contact_search_result"

	// Notification events
	EventNotification EventType = "notification"

	// Error events
	EventError EventType = "error"
)

// WSMessage represents a WebSocket message structure
type WSMessage struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage stamps payload with the current time
func NewMessage(typ EventType, payload interface{}) WSMessage {
	return WSMessage{Type: typ, Payload: payload, Timestamp: time.Now()}
}

// TypingPayload represents typing indicator payload
type TypingPayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

// PresencePayload represents user presence payload
type PresencePayload struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen,omitempty"`
}

// SearchResultPayload answers a contact_search request
type SearchResultPayload struct {
	Query   string                      `json:"query"`
	Results []models.ContactWithProfile `json:"results"`
}

// ErrorPayload represents error event payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IncomingMessage represents messages received from clients
type IncomingMessage struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}
