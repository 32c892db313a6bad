package app

import (
	"context"
	"testing"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterBroadcastsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.connect("a")
	f.rec.Reset()
	f.connect("b")

	for _, tid := range []core.TransportID{"t-a", "t-b"} {
		got := f.rec.Events(tid, core.EventPresenceSnapshot)
		require.Len(t, got, 1, string(tid))
		assert.Equal(t, []domain.UserID{"a", "b"}, got[0].Payload.(core.PresenceSnapshot).Users)
	}
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	f := newFixture(t)
	f.connect("a")
	f.state.SetActiveCall("a", "r1")
	f.connect("a")

	s, ok := f.reg.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("r1"), s.ActiveCall)
	assert.Len(t, f.state.Sessions(), 1)
}

func TestRegistry_LastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reg.Register(ctx, "u1", "t1")
	f.reg.Register(ctx, "u1", "t2")

	s, ok := f.reg.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, core.TransportID("t2"), s.TransportID)

	// t1 is stale: still addressable until it unregisters
	stale, ok := f.reg.LookupByTransport("t1")
	if ok {
		assert.Equal(t, domain.UserID("u1"), stale.UserID)
	}
	assert.Equal(t, []domain.UserID{"u1"}, f.reg.Online())
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	f := newFixture(t)
	f.reg.Unregister(context.Background(), "nope")
	assert.Empty(t, f.rec.All())
}

func TestRegistry_UnregisterLeavesCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect("a", "b")
	room := f.direct(t, "a", "b")
	_, err := f.calls.Join(ctx, room.ID, "a")
	require.NoError(t, err)
	_, err = f.calls.Join(ctx, room.ID, "b")
	require.NoError(t, err)
	f.rec.Reset()

	f.reg.Unregister(ctx, "t-a")

	assert.Empty(t, f.calls.Roster(room.ID))
	assert.Len(t, f.rec.Events("t-b", core.EventCallEnded), 1)
	snap := f.rec.Events("t-b", core.EventPresenceSnapshot)
	require.Len(t, snap, 1)
	assert.Equal(t, []domain.UserID{"b"}, snap[0].Payload.(core.PresenceSnapshot).Users)
	_, ok := f.reg.LookupByTransport("t-a")
	assert.False(t, ok)
}

func TestRegistry_StaleTransportKeepsCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect("a", "b")
	room := f.direct(t, "a", "b")
	f.calls.Join(ctx, room.ID, "a")
	f.calls.Join(ctx, room.ID, "b")

	// a reconnects on a new transport, then the old one drops
	f.reg.Register(ctx, "a", "t-a2")
	s, _ := f.reg.Lookup("a")
	assert.Equal(t, room.ID, s.ActiveCall)
	f.rec.Reset()

	f.reg.Unregister(ctx, "t-a")

	assert.Equal(t, []domain.UserID{"a", "b"}, f.calls.Roster(room.ID))
	assert.Zero(t, f.rec.Count(core.EventCallEnded))
}

func TestRegistry_SendToOffline(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.reg.SendTo("ghost", core.EventPong, nil))

	f.connect("a")
	f.rec.SetOffline("t-a")
	assert.False(t, f.reg.SendTo("a", core.EventPong, nil))
}
