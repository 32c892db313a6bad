package app

import (
	"encoding/json"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

// SignalRelay forwards opaque signaling payloads between two users.
// Nothing is queued for offline targets.
type SignalRelay struct {
	registry *Registry
}

func NewSignalRelay(registry *Registry) *SignalRelay {
	return &SignalRelay{registry: registry}
}

// Relay reports whether the payload reached the target's transport.
func (s *SignalRelay) Relay(from, to domain.UserID, payload json.RawMessage) bool {
	ok := s.registry.SendTo(to, core.EventSignalReceive, core.SignalReceive{
		FromUserID: from,
		Payload:    payload,
	})
	if !ok {
		log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("to", string(to)).Msg("signal dropped")
	}
	return ok
}
