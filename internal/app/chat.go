package app

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/domain"
)

// MessageStore is the durable side of the chat path.
type MessageStore interface {
	SaveMessage(ctx context.Context, m *domain.Message) error
	MessagesByRoom(ctx context.Context, room domain.RoomID) ([]domain.Message, error)
}

// ChatCoordinator validates, persists, then broadcasts chat messages.
// The persist step must succeed before any fanout: a message a
// recipient sees is guaranteed to already be durable.
type ChatCoordinator struct {
	store MessageStore
	rooms *Router
}

func NewChatCoordinator(store MessageStore, rooms *Router) *ChatCoordinator {
	return &ChatCoordinator{store: store, rooms: rooms}
}

// Send persists a message and broadcasts the canonical record to every
// member of the room, the sender's own connection included.
func (c *ChatCoordinator) Send(ctx context.Context, room domain.RoomID, sender domain.UserID, text string) (*domain.Message, error) {
	switch {
	case room == "":
		return nil, &ValidationError{Field: "room", Reason: "required"}
	case sender == "":
		return nil, &ValidationError{Field: "userId", Reason: "required"}
	case text == "":
		return nil, &ValidationError{Field: "text", Reason: "required"}
	}

	m := &domain.Message{
		ID:       domain.MessageID(ulid.Make().String()),
		RoomID:   room,
		SenderID: sender,
		Text:     text,
		SentAt:   time.Now().UTC(),
	}
	if err := c.store.SaveMessage(ctx, m); err != nil {
		return nil, &PersistenceError{Op: "save message", Err: err}
	}

	sent := c.rooms.Broadcast(room, receiveMessageEvent{Type: EvReceiveMessage, Message: *m})
	log.Info().Str("module", "app.chat").Str("room", string(room)).Str("msg", string(m.ID)).Int("sent_to", sent).Msg("message fanned out")
	return m, nil
}

// History returns all messages for a room in ascending timestamp order.
func (c *ChatCoordinator) History(ctx context.Context, room domain.RoomID) ([]domain.Message, error) {
	if room == "" {
		return nil, &ValidationError{Field: "room", Reason: "required"}
	}
	msgs, err := c.store.MessagesByRoom(ctx, room)
	if err != nil {
		return nil, &PersistenceError{Op: "fetch history", Err: err}
	}
	return msgs, nil
}
