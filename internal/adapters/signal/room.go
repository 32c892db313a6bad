package signal

import (
	"context"

	"github.com/dkeye/Lounge/internal/core"
)

func (ctl *SignalWSController) handleResolveDirect(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[resolveDirect](env)
	if err != nil {
		return err
	}
	_, err = ctl.Orch.ResolveDirect(ctx, tid, p.UserA, p.UserB)
	return err
}

func (ctl *SignalWSController) handleMessageSend(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[messageSend](env)
	if err != nil {
		return err
	}
	_, err = ctl.Orch.SendMessage(ctx, tid, p.RoomID, p.Content)
	return err
}

func (ctl *SignalWSController) handleNotificationCreate(ctx context.Context, tid core.TransportID, env envelope) error {
	p, err := payloadOf[notificationCreate](env)
	if err != nil {
		return err
	}
	_, err = ctl.Orch.CreateNotification(ctx, tid, p.ReceiverIDs, p.Type, p.URL, p.Payload)
	return err
}
