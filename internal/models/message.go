package models

import "time"

// Message types
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

// Message represents a chat message posted into a room
type Message struct {
	ID        string    `json:"id" db:"id"`
	RoomID    string    `json:"roomId" db:"room_id"`
	SenderID  string    `json:"senderId" db:"sender_id"`
	Content   string    `json:"content" db:"content"`
	Type      string    `json:"type" db:"type"` // 'text', 'image', 'file'
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// MessageWithSender includes sender information
type MessageWithSender struct {
	Message
	Sender ProfileResponse `json:"sender"`
}
