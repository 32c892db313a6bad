package signal

import (
	"context"

	"github.com/dkeye/Lounge/internal/core"
)

// Call control and the offer/answer/candidate relay between peers. Media
// never passes through the server.

func (ctl *SignalWSController) handleCallStart(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[callStart](env)
	if err != nil {
		return err
	}
	return malformed(ctl.Orch.StartCall(ctx, tid, p.RoomID, p.CallerID, p.Payload))
}

func (ctl *SignalWSController) handleCallJoin(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[callMember](env)
	if err != nil {
		return err
	}
	return malformed(ctl.Orch.JoinCall(ctx, tid, p.RoomID, p.UserID))
}

func (ctl *SignalWSController) handleCallLeave(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[callMember](env)
	if err != nil {
		return err
	}
	return malformed(ctl.Orch.LeaveCall(ctx, tid, p.RoomID, p.UserID))
}

func (ctl *SignalWSController) handleCallAnswer(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[callAnswer](env)
	if err != nil {
		return err
	}
	return ctl.Orch.AnswerCall(ctx, tid, p.RoomID, p.CallerID)
}

func (ctl *SignalWSController) handleCallSetting(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[callSetting](env)
	if err != nil {
		return err
	}
	return ctl.Orch.ChangeSetting(ctx, tid, p.RoomID, p.Data)
}

func (ctl *SignalWSController) handleSignalSend(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[signalSend](env)
	if err != nil {
		return err
	}
	return ctl.Orch.RelaySignal(ctx, tid, p.ToUserID, p.Payload)
}
