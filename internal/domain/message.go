package domain

import "time"

type MessageID string

// Message is immutable once the message store has created it.
type Message struct {
	ID        MessageID `json:"id"`
	RoomID    RoomID    `json:"roomId"`
	AuthorID  UserID    `json:"authorId"`
	Author    *User     `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
