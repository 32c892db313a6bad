package signal

import (
	"context"
	"fmt"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

// handlePresenceJoin registers the claimed user. A connection opened with
// a cookie session may only join as that user.
func (ctl *SignalWSController) handlePresenceJoin(ctx context.Context, tid core.TransportID, bound domain.UserID, env envelope) error {
	p, err := payloadOf[presenceJoin](env)
	if err != nil {
		return err
	}
	uid, err := domain.ParseUserID(string(p.UserID))
	if err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	if bound != "" && uid != bound {
		return fmt.Errorf("%w: join as %s on a connection of %s", errMalformed, uid, bound)
	}
	log.Info().Str("module", "signal").Str("transport", string(tid)).Str("user", string(uid)).Msg("presence join")
	ctl.Orch.Connect(ctx, tid, uid)
	return nil
}

func (ctl *SignalWSController) handlePresenceLeave(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[presenceLeave](env)
	if err != nil {
		return err
	}
	return malformed(ctl.Orch.Leave(ctx, tid, p.UserID))
}
