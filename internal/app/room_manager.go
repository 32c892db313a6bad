package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// RoomResolver is a read-through cache over the room store. Rooms live in
// the cache for the whole process lifetime.
type RoomResolver struct {
	store core.RoomStore
	now   func() time.Time
	group singleflight.Group

	mu     sync.RWMutex
	rooms  map[domain.RoomID]*domain.Room
	direct map[string]domain.RoomID
}

func NewRoomResolver(store core.RoomStore) *RoomResolver {
	return &RoomResolver{
		store:  store,
		now:    time.Now,
		rooms:  make(map[domain.RoomID]*domain.Room),
		direct: make(map[string]domain.RoomID),
	}
}

// ResolveDirect returns the direct room of the pair a, b, in either order,
// creating it when the store has none. Two first-time calls for the same
// pair may both create a room; uniqueness belongs to the store.
func (rr *RoomResolver) ResolveDirect(ctx context.Context, a, b domain.UserID) (*domain.Room, error) {
	if a == "" || b == "" || a == b {
		return nil, domain.ErrInvalidPair
	}
	key := domain.DirectKey(a, b)

	if room, ok := rr.cachedDirect(key); ok && room.SameMembers(a, b) {
		return room, nil
	}

	room, err := rr.store.FindDirect(ctx, a, b)
	switch {
	case err == nil:
		if !room.SameMembers(a, b) {
			return nil, fmt.Errorf("room %s is not the direct room of %s", room.ID, key)
		}
		rr.put(room)
		return room.Clone(), nil
	case !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("find direct room %s: %w", key, err)
	}

	fresh, err := domain.NewDirectRoom(a, b, rr.now().UTC())
	if err != nil {
		return nil, err
	}
	room, err = rr.store.Create(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("create direct room %s: %w", key, err)
	}
	rr.put(room)
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID)).Str("pair", key).Msg("created direct room")
	return room.Clone(), nil
}

// GetByID returns the room from the cache, falling back to the store.
// Concurrent misses for one id share a single store call.
func (rr *RoomResolver) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	rr.mu.RLock()
	room, ok := rr.rooms[id]
	rr.mu.RUnlock()
	if ok {
		return room.Clone(), nil
	}

	v, err, _ := rr.group.Do(string(id), func() (any, error) {
		room, err := rr.store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		rr.put(room)
		return room, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}
	return v.(*domain.Room).Clone(), nil
}

func (rr *RoomResolver) cachedDirect(key string) (*domain.Room, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	id, ok := rr.direct[key]
	if !ok {
		return nil, false
	}
	room, ok := rr.rooms[id]
	if !ok {
		return nil, false
	}
	return room.Clone(), true
}

func (rr *RoomResolver) put(room *domain.Room) {
	cp := room.Clone()
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.rooms[cp.ID] = cp
	if cp.IsDirect && len(cp.MemberIDs) == 2 {
		rr.direct[domain.DirectKey(cp.MemberIDs[0], cp.MemberIDs[1])] = cp.ID
	}
}
