package models

import "time"

// Notification types
const (
	NotificationContactRequest = "contact_request"
)

// Notification is a best-effort side record surfaced as a UI banner
type Notification struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	ActorID     string    `json:"actorId" db:"actor_id"`
	Type        string    `json:"type" db:"type"`
	ReferenceID string    `json:"referenceId,omitempty" db:"reference_id"`
	Read        bool      `json:"read" db:"read"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
