package app

import (
	"slices"
	"sync"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
)

var _ core.StateStore = (*MemoryState)(nil)

// MemoryState is the process-local core.StateStore.
// Sessions are indexed by transport and by user; rosters by room.
type MemoryState struct {
	mu          sync.RWMutex
	byTransport map[core.TransportID]*core.Session
	byUser      map[domain.UserID]core.TransportID

	rosterMu sync.Mutex
	rosters  map[domain.RoomID][]core.Participant
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		byTransport: make(map[core.TransportID]*core.Session),
		byUser:      make(map[domain.UserID]core.TransportID),
		rosters:     make(map[domain.RoomID][]core.Participant),
	}
}

func (m *MemoryState) PutSession(s core.Session) (core.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// The transport may have been bound to another identity before.
	if old, ok := m.byTransport[s.TransportID]; ok && old.UserID != s.UserID {
		if m.byUser[old.UserID] == s.TransportID {
			delete(m.byUser, old.UserID)
		}
	}

	var prev core.Session
	replaced := false
	if tid, ok := m.byUser[s.UserID]; ok && tid != s.TransportID {
		if p, ok := m.byTransport[tid]; ok {
			prev, replaced = *p, true
		}
	}

	cp := s
	m.byTransport[s.TransportID] = &cp
	m.byUser[s.UserID] = s.TransportID
	return prev, replaced
}

func (m *MemoryState) DeleteSession(tid core.TransportID) (core.Session, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byTransport[tid]
	if !ok {
		return core.Session{}, false, false
	}
	delete(m.byTransport, tid)
	primary := m.byUser[s.UserID] == tid
	if primary {
		delete(m.byUser, s.UserID)
	}
	return *s, primary, true
}

func (m *MemoryState) SessionByUser(uid domain.UserID) (core.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tid, ok := m.byUser[uid]
	if !ok {
		return core.Session{}, false
	}
	s, ok := m.byTransport[tid]
	if !ok {
		return core.Session{}, false
	}
	return *s, true
}

func (m *MemoryState) SessionByTransport(tid core.TransportID) (core.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byTransport[tid]
	if !ok {
		return core.Session{}, false
	}
	return *s, true
}

func (m *MemoryState) SetActiveCall(uid domain.UserID, room domain.RoomID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.primaryLocked(uid)
	if !ok {
		return false
	}
	s.ActiveCall = room
	return true
}

func (m *MemoryState) ClearActiveCall(uid domain.UserID, room domain.RoomID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.primaryLocked(uid)
	if !ok || s.ActiveCall != room {
		return false
	}
	s.ActiveCall = ""
	return true
}

func (m *MemoryState) primaryLocked(uid domain.UserID) (*core.Session, bool) {
	tid, ok := m.byUser[uid]
	if !ok {
		return nil, false
	}
	s, ok := m.byTransport[tid]
	return s, ok
}

func (m *MemoryState) Sessions() []core.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Session, 0, len(m.byTransport))
	for _, s := range m.byTransport {
		out = append(out, *s)
	}
	return out
}

func (m *MemoryState) OnlineUsers() []domain.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.UserID, 0, len(m.byUser))
	for uid := range m.byUser {
		out = append(out, uid)
	}
	slices.Sort(out)
	return out
}

func (m *MemoryState) Roster(room domain.RoomID) []core.Participant {
	m.rosterMu.Lock()
	defer m.rosterMu.Unlock()
	return slices.Clone(m.rosters[room])
}

func (m *MemoryState) UpdateRoster(room domain.RoomID, fn func([]core.Participant) []core.Participant) ([]core.Participant, []core.Participant) {
	m.rosterMu.Lock()
	defer m.rosterMu.Unlock()
	before := slices.Clone(m.rosters[room])
	after := fn(slices.Clone(before))
	if len(after) == 0 {
		delete(m.rosters, room)
		return before, nil
	}
	m.rosters[room] = slices.Clone(after)
	return before, after
}
