package orch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dkeye/Lounge/internal/adapters/store/memstore"
	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/core/coretest"
	"github.com/dkeye/Lounge/internal/core/mocks"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestOrchestrator(t *testing.T, msgs core.MessageStore) (*Orchestrator, *coretest.Recorder) {
	t.Helper()
	rec := coretest.NewRecorder()
	if msgs == nil {
		msgs = memstore.NewMessages()
	}
	o := New(Deps{
		Transport:     rec,
		Rooms:         memstore.NewRooms(false),
		Messages:      msgs,
		Notifications: memstore.NewNotifications(),
		Users:         memstore.NewUsers(domain.User{ID: "A", Username: "alice"}, domain.User{ID: "B", Username: "bob"}),
	})
	return o, rec
}

func TestScenario_CallEndsWhenCallerDisconnects(t *testing.T) {
	ctx := context.Background()
	o, rec := newTestOrchestrator(t, nil)
	o.Connect(ctx, "tA", "A")
	o.Connect(ctx, "tB", "B")

	room, err := o.ResolveDirect(ctx, "tA", "A", "B")
	require.NoError(t, err)
	resolved := rec.Events("tA", core.EventRoomResolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, room.ID, resolved[0].Payload.(core.RoomResolved).Room.ID)

	require.NoError(t, o.StartCall(ctx, "tA", room.ID, "A", nil))
	incoming := rec.Events("tB", core.EventCallIncoming)
	require.Len(t, incoming, 1)
	assert.Equal(t, core.CallIncoming{RoomID: room.ID, CallerID: "A"}, incoming[0].Payload)

	require.NoError(t, o.JoinCall(ctx, "tB", room.ID, "B"))
	peers := rec.Events("tB", core.EventCallPeers)
	require.Len(t, peers, 1)
	assert.Equal(t, []domain.UserID{"A"}, peers[0].Payload.(core.CallPeers).PeerIDs)
	assert.Empty(t, rec.Events("tA", core.EventCallPeers))
	assert.Equal(t, []domain.UserID{"A", "B"}, o.CallInfo(room.ID).Participants)

	o.Disconnect(ctx, "tA")

	assert.Empty(t, o.CallInfo(room.ID).Participants)
	assert.Len(t, rec.Events("tB", core.EventCallEnded), 1)
	assert.Equal(t, "idle", o.CallInfo(room.ID).State)
}

func TestScenario_MessageDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("delivered", func(t *testing.T) {
		o, rec := newTestOrchestrator(t, nil)
		o.Connect(ctx, "tA", "A")
		o.Connect(ctx, "tB", "B")
		room, err := o.ResolveDirect(ctx, "tA", "A", "B")
		require.NoError(t, err)

		_, err = o.SendMessage(ctx, "tA", room.ID, "hi")
		require.NoError(t, err)

		got := rec.Events("tB", core.EventMessageNew)
		require.Len(t, got, 1)
		msg := got[0].Payload.(core.MessageNew).Message
		assert.Equal(t, domain.UserID("A"), msg.AuthorID)
		assert.Equal(t, room.ID, msg.RoomID)
		assert.Equal(t, "hi", msg.Content)
		assert.False(t, msg.CreatedAt.IsZero())
		assert.Equal(t, "alice", msg.Author.Username)
	})

	t.Run("persistence failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockMessageStore(ctrl)
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
		o, rec := newTestOrchestrator(t, store)
		o.Connect(ctx, "tA", "A")
		o.Connect(ctx, "tB", "B")
		room, err := o.ResolveDirect(ctx, "tA", "A", "B")
		require.NoError(t, err)
		rec.Reset()

		_, err = o.SendMessage(ctx, "tA", room.ID, "hi")
		require.Error(t, err)

		assert.Empty(t, rec.Events("tB", core.EventMessageNew))
		assert.Empty(t, rec.Events("tB", core.EventError))
		errs := rec.Events("tA", core.EventError)
		require.Len(t, errs, 1)
		assert.Equal(t, "message.send", errs[0].Payload.(core.ErrorEvent).Event)
	})
}

func TestOrchestrator_IdentityChecks(t *testing.T) {
	ctx := context.Background()
	o, rec := newTestOrchestrator(t, nil)
	o.Connect(ctx, "tA", "A")
	o.Connect(ctx, "tB", "B")
	room, err := o.ResolveDirect(ctx, "tA", "A", "B")
	require.NoError(t, err)
	rec.Reset()

	err = o.JoinCall(ctx, "tA", room.ID, "B")
	assert.ErrorIs(t, err, ErrIdentityMismatch)
	assert.Empty(t, o.CallInfo(room.ID).Participants)
	assert.Empty(t, rec.All())

	err = o.RelaySignal(ctx, "unknown", "B", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, core.ErrNoTransport)

	err = o.Leave(ctx, "tA", "B")
	assert.ErrorIs(t, err, ErrIdentityMismatch)
	_, ok := o.Registry.Lookup("A")
	assert.True(t, ok)
}

func TestOrchestrator_RejectsOutsiders(t *testing.T) {
	ctx := context.Background()
	o, rec := newTestOrchestrator(t, nil)
	o.Connect(ctx, "tA", "A")
	o.Connect(ctx, "tB", "B")
	o.Connect(ctx, "tZ", "Z")
	room, err := o.ResolveDirect(ctx, "tA", "A", "B")
	require.NoError(t, err)

	_, err = o.ResolveDirect(ctx, "tZ", "A", "B")
	assert.ErrorIs(t, err, app.ErrNotMember)
	assert.ErrorIs(t, o.JoinCall(ctx, "tZ", room.ID, ""), app.ErrNotMember)
	assert.Len(t, rec.Events("tZ", core.EventError), 2)
}

func TestOrchestrator_SignalAndPing(t *testing.T) {
	ctx := context.Background()
	o, rec := newTestOrchestrator(t, nil)
	o.Connect(ctx, "tA", "A")
	o.Connect(ctx, "tB", "B")

	require.NoError(t, o.RelaySignal(ctx, "tA", "B", json.RawMessage(`{"candidate":"x"}`)))
	require.NoError(t, o.RelaySignal(ctx, "tA", "offline", json.RawMessage(`{}`)))
	got := rec.Events("tB", core.EventSignalReceive)
	require.Len(t, got, 1)
	assert.Equal(t, domain.UserID("A"), got[0].Payload.(core.SignalReceive).FromUserID)
	assert.Equal(t, 1, rec.Count(core.EventSignalReceive))

	o.Ping("tA")
	assert.Len(t, rec.Events("tA", core.EventPong), 1)
}

func TestOrchestrator_NotificationToOnlineReceivers(t *testing.T) {
	ctx := context.Background()
	o, rec := newTestOrchestrator(t, nil)
	o.Connect(ctx, "tA", "A")
	o.Connect(ctx, "tB", "B")

	n, err := o.CreateNotification(ctx, "tA", []domain.UserID{"B", "C"}, "follow", "/u/A", nil)
	require.NoError(t, err)
	got := rec.Events("tB", core.EventNotificationNew)
	require.Len(t, got, 1)
	assert.Equal(t, n.ID, got[0].Payload.(core.NotificationNew).Notification.ID)
	assert.Equal(t, "alice", got[0].Payload.(core.NotificationNew).Notification.Sender.Username)
}
