package core

import "errors"

var ErrNoTransport = errors.New("no such transport")

// Frame is a raw encoded event.
type Frame []byte

type TransportID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Transport delivers a named event to one live transport endpoint.
// Send never blocks: an absent or saturated target yields an error
// that fan-out callers are free to ignore.
type Transport interface {
	Send(to TransportID, event string, payload any) error
}
