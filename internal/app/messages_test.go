package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Lounge/internal/adapters/store/memstore"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/core/mocks"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMessageFanout_DeliversToOnlineMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := memstore.NewUsers(domain.User{ID: "a", Username: "alice"})
	msgs := memstore.NewMessages()
	fan := NewMessageFanout(f.resolver, msgs, users, f.reg)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fan.now = func() time.Time { return at }

	f.connect("a", "b")
	room := f.group(t, "a", "b", "offline")
	f.rec.Reset()

	msg, err := fan.Send(ctx, "a", room.ID, "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	got := f.rec.Events("t-b", core.EventMessageNew)
	require.Len(t, got, 1)
	m := got[0].Payload.(core.MessageNew).Message
	assert.Equal(t, domain.UserID("a"), m.AuthorID)
	assert.Equal(t, room.ID, m.RoomID)
	assert.Equal(t, at, m.CreatedAt)
	require.NotNil(t, m.Author)
	assert.Equal(t, "alice", m.Author.Username)

	assert.Len(t, f.rec.Events("t-a", core.EventMessageNew), 1)
	assert.Len(t, msgs.InRoom(room.ID), 1)
}

func TestMessageFanout_PersistenceFailureDeliversNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	boom := errors.New("db down")
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, boom)
	fan := NewMessageFanout(f.resolver, store, nil, f.reg)

	f.connect("a", "b")
	room := f.direct(t, "a", "b")
	f.rec.Reset()

	_, err := fan.Send(ctx, "a", room.ID, "hi")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.rec.All())
}

func TestMessageFanout_UserLookupFailureStillDelivers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	users.EXPECT().FindByID(gomock.Any(), domain.UserID("a")).Return(nil, core.ErrNotFound)
	fan := NewMessageFanout(f.resolver, memstore.NewMessages(), users, f.reg)

	f.connect("a", "b")
	room := f.direct(t, "a", "b")
	f.rec.Reset()

	_, err := fan.Send(ctx, "a", room.ID, "hi")
	require.NoError(t, err)
	got := f.rec.Events("t-b", core.EventMessageNew)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Payload.(core.MessageNew).Message.Author)
}

func TestMessageFanout_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fan := NewMessageFanout(f.resolver, memstore.NewMessages(), nil, f.reg)
	f.connect("a", "b", "z")
	room := f.direct(t, "a", "b")

	_, err := fan.Send(ctx, "z", room.ID, "hi")
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = fan.Send(ctx, "a", "missing", "hi")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
