package app

import (
	"context"
	"testing"

	"github.com/dkeye/Lounge/internal/adapters/store/memstore"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/core/coretest"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	state    *MemoryState
	rec      *coretest.Recorder
	reg      *Registry
	store    *memstore.Rooms
	resolver *RoomResolver
	calls    *CallCoordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state: NewMemoryState(),
		rec:   coretest.NewRecorder(),
		store: memstore.NewRooms(false),
	}
	f.reg = NewRegistry(f.state, f.rec)
	f.resolver = NewRoomResolver(f.store)
	f.calls = NewCallCoordinator(f.state, f.reg, f.resolver)
	f.reg.SetCallLeaver(f.calls)
	return f
}

func tidOf(uid domain.UserID) core.TransportID {
	return core.TransportID("t-" + string(uid))
}

func (f *fixture) connect(uids ...domain.UserID) {
	for _, uid := range uids {
		f.reg.Register(context.Background(), uid, tidOf(uid))
	}
}

func (f *fixture) direct(t *testing.T, a, b domain.UserID) *domain.Room {
	t.Helper()
	room, err := f.resolver.ResolveDirect(context.Background(), a, b)
	require.NoError(t, err)
	return room
}

// group creates a multi-member room straight in the store.
func (f *fixture) group(t *testing.T, members ...domain.UserID) *domain.Room {
	t.Helper()
	room, err := f.store.Create(context.Background(), &domain.Room{Name: "group", MemberIDs: members})
	require.NoError(t, err)
	return room
}
