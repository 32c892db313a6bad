package core

import (
	"time"

	"github.com/dkeye/Lounge/internal/domain"
)

// Session binds a user identity to its current transport.
// Ephemeral: created on connect, destroyed on disconnect.
type Session struct {
	UserID      domain.UserID
	TransportID TransportID
	ActiveCall  domain.RoomID
	ConnectedAt time.Time
}

func (s Session) InCall() bool { return s.ActiveCall != "" }

// SessionStore keeps sessions indexed by transport id and by user id.
// A user has at most one primary session; older transports of the same
// user stay addressable by transport id until they unregister.
type SessionStore interface {
	// PutSession upserts s by transport id and makes it the user's primary
	// session. prev is the primary session it displaced on another transport.
	PutSession(s Session) (prev Session, replaced bool)
	// DeleteSession removes the session of tid. primary reports whether it
	// was still the user's primary session.
	DeleteSession(tid TransportID) (s Session, primary bool, ok bool)
	SessionByUser(uid domain.UserID) (Session, bool)
	SessionByTransport(tid TransportID) (Session, bool)
	// SetActiveCall binds the user's primary session to a call room.
	SetActiveCall(uid domain.UserID, room domain.RoomID) bool
	// ClearActiveCall unbinds the user's primary session only if it is
	// still bound to room.
	ClearActiveCall(uid domain.UserID, room domain.RoomID) bool
	Sessions() []Session
	OnlineUsers() []domain.UserID
}
