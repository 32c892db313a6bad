package core

import "github.com/dkeye/Lounge/internal/domain"

// Participant is one entry of a call roster.
type Participant struct {
	UserID      domain.UserID `json:"userId"`
	TransportID TransportID   `json:"-"`
}

// RosterStore owns the per-room call rosters. Returning an empty roster
// from an update clears the entry.
type RosterStore interface {
	// Roster returns a copy of the roster of room.
	Roster(room domain.RoomID) []Participant
	// UpdateRoster applies fn to the current roster atomically and stores
	// the result. An empty result removes the entry. It returns copies of
	// the roster before and after the update.
	UpdateRoster(room domain.RoomID, fn func([]Participant) []Participant) (before, after []Participant)
}

// StateStore is the whole ephemeral state of the coordination core.
// The in-memory implementation can be swapped for a shared backing store.
type StateStore interface {
	SessionStore
	RosterStore
}
