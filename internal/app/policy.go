package app

import (
	"strings"

	"github.com/dkeye/Lounge/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropEvent
	KickConnection
)

// Policy decides what happens to a transport whose send buffer is full.
type Policy interface {
	OnBackPressure(to core.TransportID, event string) BackpressureAction
}

// SimplePolicy applies one action to every saturated transport.
type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(core.TransportID, string) BackpressureAction {
	return p.Action
}

// PolicyFromString maps the config value ("drop", "kick") to a policy.
// Unknown values fall back to dropping the event.
func PolicyFromString(s string) SimplePolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kick":
		return SimplePolicy{Action: KickConnection}
	default:
		return SimplePolicy{Action: DropEvent}
	}
}
