package signal

import (
	"errors"
	"sync"

	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/rs/zerolog/log"
)

var _ core.Transport = (*Hub)(nil)

// Hub is the process-wide core.Transport. It encodes events and hands
// them to the connection of the target transport without blocking.
type Hub struct {
	mu     sync.RWMutex
	conns  map[core.TransportID]core.SignalConnection
	policy app.Policy
}

func NewHub(policy app.Policy) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{Action: app.DropEvent}
	}
	return &Hub{conns: make(map[core.TransportID]core.SignalConnection), policy: policy}
}

func (h *Hub) Attach(tid core.TransportID, conn core.SignalConnection) {
	h.mu.Lock()
	h.conns[tid] = conn
	h.mu.Unlock()
}

func (h *Hub) Detach(tid core.TransportID) {
	h.mu.Lock()
	delete(h.conns, tid)
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send delivers one event. A saturated connection is handled by the
// backpressure policy and the event is lost either way.
func (h *Hub) Send(to core.TransportID, event string, payload any) error {
	h.mu.RLock()
	conn, ok := h.conns[to]
	h.mu.RUnlock()
	if !ok {
		return core.ErrNoTransport
	}

	frame, err := encodeEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("event", event).Msg("encode")
		return err
	}

	err = conn.TrySend(frame)
	if errors.Is(err, ErrBackpressure) {
		switch h.policy.OnBackPressure(to, event) {
		case app.KickConnection:
			log.Warn().Str("module", "signal.hub").Str("transport", string(to)).Str("event", event).Msg("slow consumer kicked")
			conn.Close()
		case app.DropEvent, app.NoAction:
			log.Warn().Str("module", "signal.hub").Str("transport", string(to)).Str("event", event).Msg("event dropped")
		}
	}
	return err
}

// CloseAll closes every connection; their read pumps run the cleanup.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]core.SignalConnection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}
}
