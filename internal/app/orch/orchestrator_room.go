package orch

import (
	"context"

	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
)

const (
	evResolveDirect      = "room.resolveDirect"
	evMessageSend        = "message.send"
	evNotificationCreate = "notification.create"
)

// ResolveDirect answers the originator with the direct room of the pair.
// The originator must be one of the two users.
func (o *Orchestrator) ResolveDirect(ctx context.Context, tid core.TransportID, a, b domain.UserID) (*domain.Room, error) {
	uid, err := o.Identify(tid, "")
	if err != nil {
		return nil, err
	}
	if uid != a && uid != b {
		o.fail(tid, evResolveDirect, app.ErrNotMember)
		return nil, app.ErrNotMember
	}
	room, err := o.Rooms.ResolveDirect(ctx, a, b)
	if err != nil {
		o.fail(tid, evResolveDirect, err)
		return nil, err
	}
	o.reply(tid, core.EventRoomResolved, core.RoomResolved{Room: room})
	return room, nil
}

func (o *Orchestrator) SendMessage(ctx context.Context, tid core.TransportID, roomID domain.RoomID, content string) (*domain.Message, error) {
	uid, err := o.Identify(tid, "")
	if err != nil {
		return nil, err
	}
	msg, err := o.Messages.Send(ctx, uid, roomID, content)
	if err != nil {
		o.fail(tid, evMessageSend, err)
		return nil, err
	}
	return msg, nil
}

func (o *Orchestrator) CreateNotification(ctx context.Context, tid core.TransportID, receivers []domain.UserID, typ, url string, payload map[string]any) (*domain.Notification, error) {
	uid, err := o.Identify(tid, "")
	if err != nil {
		return nil, err
	}
	n, err := o.Notifications.Create(ctx, uid, receivers, typ, url, payload)
	if err != nil {
		o.fail(tid, evNotificationCreate, err)
		return nil, err
	}
	return n, nil
}
