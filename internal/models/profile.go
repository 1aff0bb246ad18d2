package models

import "time"

// Presence values a user can pick in settings
const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceBusy    = "busy"
	PresenceOffline = "offline"
)

// Profile represents a user identity with its denormalized display attributes
type Profile struct {
	ID        string    `json:"id" db:"id"`
	UniqueID  string    `json:"uniqueId" db:"unique_id"` // Format: #GOPRO-882
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Password  string    `json:"-" db:"password_hash"` // Never expose in JSON
	Avatar    *string   `json:"avatar,omitempty" db:"avatar"`
	Status    string    `json:"status" db:"status"`
	IsOnline  bool      `json:"isOnline" db:"is_online"`
	LastSeen  time.Time `json:"lastSeen" db:"last_seen"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ProfileResponse is what we send to clients (without sensitive data)
type ProfileResponse struct {
	ID        string    `json:"id"`
	UniqueID  string    `json:"uniqueId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    *string   `json:"avatar,omitempty"`
	Status    string    `json:"status"`
	IsOnline  bool      `json:"isOnline"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToResponse converts Profile to ProfileResponse
func (p *Profile) ToResponse() ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		UniqueID:  p.UniqueID,
		Email:     p.Email,
		Name:      p.Name,
		Avatar:    p.Avatar,
		Status:    p.Status,
		IsOnline:  p.IsOnline,
		LastSeen:  p.LastSeen,
		CreatedAt: p.CreatedAt,
	}
}

// ProfileUpdate carries the settings a user may change on their own profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name   *string
	Status *string
	Avatar *string
}

// IsValidPresence reports whether s is one of the presence values
func IsValidPresence(s string) bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceBusy, PresenceOffline:
		return true
	}
	return false
}
