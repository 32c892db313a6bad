// Package memstore keeps rooms, messages, notifications and users in
// process memory. It backs the "memory" store driver and tests.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/google/uuid"
)

var (
	_ core.RoomStore         = (*Rooms)(nil)
	_ core.MessageStore      = (*Messages)(nil)
	_ core.NotificationStore = (*Notifications)(nil)
	_ core.UserStore         = (*Users)(nil)
)

type Rooms struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*domain.Room
	direct map[string]domain.RoomID
	unique bool
}

// NewRooms returns an empty room store. With unique set, creating a second
// direct room for a pair returns the first one instead.
func NewRooms(unique bool) *Rooms {
	return &Rooms{
		rooms:  make(map[domain.RoomID]*domain.Room),
		direct: make(map[string]domain.RoomID),
		unique: unique,
	}
}

func (s *Rooms) FindByID(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Rooms) FindDirect(_ context.Context, a, b domain.UserID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.direct[domain.DirectKey(a, b)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return s.rooms[id].Clone(), nil
}

func (s *Rooms) Create(_ context.Context, room *domain.Room) (*domain.Room, error) {
	cp := room.Clone()
	if cp.ID == "" {
		cp.ID = domain.RoomID(uuid.NewString())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp.IsDirect && len(cp.MemberIDs) == 2 {
		key := domain.DirectKey(cp.MemberIDs[0], cp.MemberIDs[1])
		if id, ok := s.direct[key]; ok && s.unique {
			return s.rooms[id].Clone(), nil
		} else if !ok {
			s.direct[key] = cp.ID
		}
	}
	s.rooms[cp.ID] = cp
	return cp.Clone(), nil
}

// Count returns the number of stored rooms.
func (s *Rooms) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

type Messages struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func NewMessages() *Messages { return &Messages{} }

func (s *Messages) Create(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	cp := *msg
	if cp.ID == "" {
		cp.ID = domain.MessageID(uuid.NewString())
	}
	cp.Author = nil
	s.mu.Lock()
	s.msgs = append(s.msgs, cp)
	s.mu.Unlock()
	return &cp, nil
}

// InRoom returns the stored messages of room in creation order.
func (s *Messages) InRoom(room domain.RoomID) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.msgs {
		if m.RoomID == room {
			out = append(out, m)
		}
	}
	return out
}

type Notifications struct {
	mu    sync.RWMutex
	items map[domain.NotificationID]*domain.Notification
	order []domain.NotificationID
}

func NewNotifications() *Notifications {
	return &Notifications{items: make(map[domain.NotificationID]*domain.Notification)}
}

func cloneNotification(n *domain.Notification) *domain.Notification {
	cp := *n
	cp.Sender = nil
	cp.ReceiverIDs = slices.Clone(n.ReceiverIDs)
	cp.ReadBy = slices.Clone(n.ReadBy)
	if cp.ReadBy == nil {
		cp.ReadBy = []domain.UserID{}
	}
	cp.Payload = maps.Clone(n.Payload)
	return &cp
}

func (s *Notifications) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	cp := cloneNotification(n)
	if cp.ID == "" {
		cp.ID = domain.NotificationID(uuid.NewString())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[cp.ID] = cp
	s.order = append(s.order, cp.ID)
	return cloneNotification(cp), nil
}

func (s *Notifications) FindByID(_ context.Context, id domain.NotificationID) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneNotification(n), nil
}

func (s *Notifications) FindDuplicate(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		c := s.items[id]
		if c.SenderID == n.SenderID && c.Type == n.Type && c.URL == n.URL && sameSet(c.ReceiverIDs, n.ReceiverIDs) {
			return cloneNotification(c), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Notifications) MarkRead(_ context.Context, id domain.NotificationID, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return core.ErrNotFound
	}
	n.MarkRead(uid)
	return nil
}

// BulkMarkRead skips ids that do not exist.
func (s *Notifications) BulkMarkRead(_ context.Context, ids []domain.NotificationID, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if n, ok := s.items[id]; ok {
			n.MarkRead(uid)
		}
	}
	return nil
}

func (s *Notifications) ListForReceiver(_ context.Context, uid domain.UserID, limit, offset int) ([]domain.Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Notification
	for i := len(s.order) - 1; i >= 0; i-- {
		if n := s.items[s.order[i]]; n.HasReceiver(uid) {
			all = append(all, *cloneNotification(n))
		}
	}
	// newest first; insertion order breaks ties
	slices.SortStableFunc(all, func(a, b domain.Notification) int { return b.CreatedAt.Compare(a.CreatedAt) })
	total := len(all)
	if offset >= total {
		return []domain.Notification{}, total, nil
	}
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}
	return all[offset:end], total, nil
}

func (s *Notifications) Delete(_ context.Context, id domain.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(x domain.NotificationID) bool { return x == id })
	return nil
}

func (s *Notifications) DeleteForReceiver(_ context.Context, uid domain.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range slices.Clone(s.order) {
		n := s.items[id]
		if !n.HasReceiver(uid) {
			continue
		}
		removed++
		n.ReceiverIDs = slices.DeleteFunc(n.ReceiverIDs, func(x domain.UserID) bool { return x == uid })
		n.ReadBy = slices.DeleteFunc(n.ReadBy, func(x domain.UserID) bool { return x == uid })
		if len(n.ReceiverIDs) == 0 {
			delete(s.items, id)
			s.order = slices.DeleteFunc(s.order, func(x domain.NotificationID) bool { return x == id })
		}
	}
	return removed, nil
}

func sameSet(a, b []domain.UserID) bool {
	ua, ub := domain.UniqueUserIDs(a), domain.UniqueUserIDs(b)
	if len(ua) != len(ub) {
		return false
	}
	for _, id := range ua {
		if !slices.Contains(ub, id) {
			return false
		}
	}
	return true
}

type Users struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.User
}

func NewUsers(users ...domain.User) *Users {
	s := &Users{users: make(map[domain.UserID]domain.User, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *Users) Put(u domain.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

func (s *Users) FindByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}
