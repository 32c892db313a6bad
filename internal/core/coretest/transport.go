// Package coretest holds in-process doubles for core interfaces.
package coretest

import (
	"sync"

	"github.com/dkeye/Lounge/internal/core"
)

// Compile-time interface check.
var _ core.Transport = (*Recorder)(nil)

// Delivery is one event handed to the transport.
type Delivery struct {
	To      core.TransportID
	Event   string
	Payload any
}

// Recorder is a core.Transport that records every send. Transports
// listed as offline reject sends with core.ErrNoTransport.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	offline    map[core.TransportID]bool
}

func NewRecorder() *Recorder {
	return &Recorder{offline: make(map[core.TransportID]bool)}
}

func (r *Recorder) Send(to core.TransportID, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline[to] {
		return core.ErrNoTransport
	}
	r.deliveries = append(r.deliveries, Delivery{To: to, Event: event, Payload: payload})
	return nil
}

// SetOffline makes sends to tid fail.
func (r *Recorder) SetOffline(tid core.TransportID) {
	r.mu.Lock()
	r.offline[tid] = true
	r.mu.Unlock()
}

func (r *Recorder) All() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// Events returns deliveries of event to tid, in send order.
func (r *Recorder) Events(tid core.TransportID, event string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Delivery
	for _, d := range r.deliveries {
		if d.To == tid && d.Event == event {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many times event was sent to anyone.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.deliveries {
		if d.Event == event {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.deliveries = nil
	r.mu.Unlock()
}
