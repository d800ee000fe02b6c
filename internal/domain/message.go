package domain

import "time"

type MessageID string

// Message is immutable once created and persisted before any fanout,
// so every recipient sees the same canonical record.
type Message struct {
	ID       MessageID `json:"id"`
	RoomID   RoomID    `json:"room"`
	SenderID UserID    `json:"userId"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"time"`
}
