package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrNotMember = errors.New("user is not a member of the room")

// MessageFanout persists chat messages and pushes them to online members.
type MessageFanout struct {
	rooms    *RoomResolver
	messages core.MessageStore
	users    core.UserStore
	registry *Registry
	now      func() time.Time
}

func NewMessageFanout(rooms *RoomResolver, messages core.MessageStore, users core.UserStore, registry *Registry) *MessageFanout {
	return &MessageFanout{
		rooms:    rooms,
		messages: messages,
		users:    users,
		registry: registry,
		now:      time.Now,
	}
}

// Send stores the message and delivers it to every online member of the
// room, the author included. Nothing is delivered when the store fails.
func (f *MessageFanout) Send(ctx context.Context, authorID domain.UserID, roomID domain.RoomID, content string) (*domain.Message, error) {
	room, err := f.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(authorID) {
		return nil, ErrNotMember
	}

	msg, err := f.messages.Create(ctx, &domain.Message{
		RoomID:    roomID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: f.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	msg.Author = expandUser(ctx, f.users, authorID)

	delivered := 0
	for _, member := range room.MemberIDs {
		if f.registry.SendTo(member, core.EventMessageNew, core.MessageNew{Message: msg}) {
			delivered++
		}
	}
	log.Info().Str("module", "app.messages").
		Str("room", string(roomID)).
		Str("author", string(authorID)).
		Int("delivered", delivered).
		Msg("message sent")
	return msg, nil
}

// expandUser looks up display fields. A failed lookup leaves them empty.
func expandUser(ctx context.Context, users core.UserStore, id domain.UserID) *domain.User {
	if users == nil {
		return nil
	}
	u, err := users.FindByID(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.users").Str("user", string(id)).Msg("user lookup failed")
		return nil
	}
	return u
}
