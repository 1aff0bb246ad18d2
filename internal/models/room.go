package models

import "time"

// Room kinds
const (
	RoomDirect = "direct"
	RoomGroup  = "group"
	RoomVault  = "vault"
)

// Room represents a chat room: a 1:1 conversation, a group or a user's vault
type Room struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Icon      *string   `json:"icon,omitempty" db:"icon"`
	Kind      string    `json:"kind" db:"kind"`
	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// RoomMember represents a user's membership in a room
type RoomMember struct {
	RoomID   string    `json:"roomId" db:"room_id"`
	UserID   string    `json:"userId" db:"user_id"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}

// RoomWithMembers includes member information
type RoomWithMembers struct {
	Room
	Members []ProfileResponse `json:"members"`
}
