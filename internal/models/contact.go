package models

import "time"

// ContactStatus is the persisted state of a contact edge
type ContactStatus string

const (
	ContactPending  ContactStatus = "pending"
	ContactAccepted ContactStatus = "accepted"
	ContactBlocked  ContactStatus = "blocked"
)

// Valid reports whether s is a known edge status
func (s ContactStatus) Valid() bool {
	return s == ContactPending || s == ContactAccepted || s == ContactBlocked
}

// RelationTag describes a counterpart relative to the viewing user
type RelationTag string

const (
	RelationFriends         RelationTag = "friends"
	RelationPendingSent     RelationTag = "pending_sent"
	RelationPendingReceived RelationTag = "pending_received"
	RelationNone            RelationTag = "none"
)

// Contact is the single directed edge between two users.
// For blocked edges the requester is the blocker.
type Contact struct {
	ID          string        `json:"id" db:"id"`
	RequesterID string        `json:"requesterId" db:"requester_id"`
	TargetID    string        `json:"targetId" db:"target_id"`
	Status      ContactStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
}

// Involves reports whether userID is either end of the edge
func (c *Contact) Involves(userID string) bool {
	return c.RequesterID == userID || c.TargetID == userID
}

// Counterpart returns the end of the edge that is not userID
func (c *Contact) Counterpart(userID string) string {
	if c.RequesterID == userID {
		return c.TargetID
	}
	return c.RequesterID
}

// ContactWithProfile annotates a counterpart with its relation to the viewer
type ContactWithProfile struct {
	RelationshipID string          `json:"relationshipId,omitempty"`
	Status         RelationTag     `json:"status"`
	Profile        ProfileResponse `json:"profile"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`
}

// RelationshipView is the derived friends / incoming requests view of a user
type RelationshipView struct {
	Friends          []ContactWithProfile `json:"friends"`
	IncomingRequests []ContactWithProfile `json:"incomingRequests"`
}

// EmptyRelationshipView returns a view with non-nil empty lists
func EmptyRelationshipView() RelationshipView {
	return RelationshipView{
		Friends:          []ContactWithProfile{},
		IncomingRequests: []ContactWithProfile{},
	}
}
