package app

import (
	"testing"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryState_LastRegistrationWins(t *testing.T) {
	m := NewMemoryState()

	_, replaced := m.PutSession(core.Session{UserID: "u1", TransportID: "t1"})
	assert.False(t, replaced)

	prev, replaced := m.PutSession(core.Session{UserID: "u1", TransportID: "t2"})
	require.True(t, replaced)
	assert.Equal(t, core.TransportID("t1"), prev.TransportID)

	s, ok := m.SessionByUser("u1")
	require.True(t, ok)
	assert.Equal(t, core.TransportID("t2"), s.TransportID)

	// the older transport stays addressable until it goes away
	_, ok = m.SessionByTransport("t1")
	assert.True(t, ok)

	_, primary, ok := m.DeleteSession("t1")
	require.True(t, ok)
	assert.False(t, primary)
	_, ok = m.SessionByUser("u1")
	assert.True(t, ok)

	_, primary, ok = m.DeleteSession("t2")
	require.True(t, ok)
	assert.True(t, primary)
	assert.Empty(t, m.OnlineUsers())
}

func TestMemoryState_TransportChangesIdentity(t *testing.T) {
	m := NewMemoryState()
	m.PutSession(core.Session{UserID: "u1", TransportID: "t1"})
	m.PutSession(core.Session{UserID: "u2", TransportID: "t1"})

	_, ok := m.SessionByUser("u1")
	assert.False(t, ok)
	assert.Equal(t, []domain.UserID{"u2"}, m.OnlineUsers())
}

func TestMemoryState_ClearActiveCallComparesRoom(t *testing.T) {
	m := NewMemoryState()
	m.PutSession(core.Session{UserID: "u1", TransportID: "t1"})
	require.True(t, m.SetActiveCall("u1", "r1"))

	assert.False(t, m.ClearActiveCall("u1", "r2"))
	s, _ := m.SessionByUser("u1")
	assert.Equal(t, domain.RoomID("r1"), s.ActiveCall)

	assert.True(t, m.ClearActiveCall("u1", "r1"))
	s, _ = m.SessionByUser("u1")
	assert.False(t, s.InCall())

	assert.False(t, m.SetActiveCall("ghost", "r1"))
}

func TestMemoryState_UpdateRosterClearsEmpty(t *testing.T) {
	m := NewMemoryState()
	before, after := m.UpdateRoster("r", func(r []core.Participant) []core.Participant {
		return append(r, core.Participant{UserID: "a", TransportID: "ta"})
	})
	assert.Empty(t, before)
	assert.Len(t, after, 1)

	before, after = m.UpdateRoster("r", func([]core.Participant) []core.Participant { return nil })
	assert.Len(t, before, 1)
	assert.Nil(t, after)
	assert.Empty(t, m.Roster("r"))
}
