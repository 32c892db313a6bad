package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

// readPump is the only reader of its transport. It runs the disconnect
// cleanup itself before returning, so no later event of tid can see the
// old session.
func (ctl *SignalWSController) readPump(ctx context.Context, tid core.TransportID, bound domain.UserID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("transport", string(tid)).Msg("readPump closing")
		c.Close()
		ctl.Hub.Detach(tid)
		ctl.Orch.Disconnect(context.WithoutCancel(ctx), tid)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(tid)
		}
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("transport", string(tid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("transport", string(tid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleEvent(ctx, tid, bound, data)
		}
	}
}

// handleEvent decodes one frame and dispatches it. Malformed events and
// events from transports without a session are dropped without a reply.
func (ctl *SignalWSController) handleEvent(ctx context.Context, tid core.TransportID, bound domain.UserID, data []byte) {
	env, err := decodeEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("transport", string(tid)).Msg("dropped frame")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(tid) {
		log.Warn().Str("module", "signal").Str("transport", string(tid)).Str("type", env.Type).Msg("rate limited")
		return
	}

	switch env.Type {
	case evPresenceJoin:
		err = ctl.handlePresenceJoin(ctx, tid, bound, env)
	case evPresenceLeave:
		err = ctl.handlePresenceLeave(ctx, tid, env)
	case evMessageSend:
		err = ctl.handleMessageSend(ctx, tid, env)
	case evRoomResolveDirect:
		err = ctl.handleResolveDirect(ctx, tid, env)
	case evNotificationCreate:
		err = ctl.handleNotificationCreate(ctx, tid, env)
	case evCallStart:
		err = ctl.handleCallStart(ctx, tid, env)
	case evCallJoin:
		err = ctl.handleCallJoin(ctx, tid, env)
	case evCallLeave:
		err = ctl.handleCallLeave(ctx, tid, env)
	case evCallAnswer:
		err = ctl.handleCallAnswer(ctx, tid, env)
	case evCallSetting:
		err = ctl.handleCallSetting(ctx, tid, env)
	case evSignalSend:
		err = ctl.handleSignalSend(ctx, tid, env)
	case evPing:
		ctl.handlePing(tid)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
		return
	}
	ctl.logOutcome(tid, env.Type, err)
}

func (ctl *SignalWSController) logOutcome(tid core.TransportID, event string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNoTransport):
		log.Debug().Str("module", "signal").Str("transport", string(tid)).Str("type", event).Msg("event before presence.join")
	case errors.Is(err, errMalformed):
		log.Warn().Err(err).Str("module", "signal").Str("transport", string(tid)).Str("type", event).Msg("dropped event")
	default:
		// already reported to the originator
		log.Debug().Err(err).Str("module", "signal").Str("transport", string(tid)).Str("type", event).Msg("event failed")
	}
}
