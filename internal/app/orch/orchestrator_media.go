package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
)

const (
	evCallStart  = "call.start"
	evCallJoin   = "call.join"
	evCallAnswer = "call.answer"
)

// CallInfo is the REST view of a room's call.
type CallInfo struct {
	RoomID       domain.RoomID   `json:"roomId"`
	State        string          `json:"state"`
	Participants []domain.UserID `json:"participants"`
}

func (o *Orchestrator) StartCall(ctx context.Context, tid core.TransportID, roomID domain.RoomID, caller domain.UserID, payload map[string]any) error {
	uid, err := o.Identify(tid, caller)
	if err != nil {
		return err
	}
	room, err := o.Rooms.GetByID(ctx, roomID)
	if err != nil {
		o.fail(tid, evCallStart, err)
		return err
	}
	if err := o.Calls.Start(ctx, room, uid, payload); err != nil {
		o.fail(tid, evCallStart, err)
		return err
	}
	return nil
}

func (o *Orchestrator) JoinCall(ctx context.Context, tid core.TransportID, roomID domain.RoomID, claimed domain.UserID) error {
	uid, err := o.Identify(tid, claimed)
	if err != nil {
		return err
	}
	if err := o.member(ctx, roomID, uid); err != nil {
		o.fail(tid, evCallJoin, err)
		return err
	}
	_, err = o.Calls.Join(ctx, roomID, uid)
	return err
}

func (o *Orchestrator) LeaveCall(ctx context.Context, tid core.TransportID, roomID domain.RoomID, claimed domain.UserID) error {
	uid, err := o.Identify(tid, claimed)
	if err != nil {
		return err
	}
	o.Calls.Leave(ctx, uid, roomID)
	return nil
}

func (o *Orchestrator) AnswerCall(ctx context.Context, tid core.TransportID, roomID domain.RoomID, caller domain.UserID) error {
	uid, err := o.Identify(tid, "")
	if err != nil {
		return err
	}
	if err := o.member(ctx, roomID, uid); err != nil {
		o.fail(tid, evCallAnswer, err)
		return err
	}
	return o.Calls.Answer(ctx, roomID, uid, caller)
}

func (o *Orchestrator) ChangeSetting(ctx context.Context, tid core.TransportID, roomID domain.RoomID, data map[string]any) error {
	uid, err := o.Identify(tid, "")
	if err != nil {
		return err
	}
	o.Calls.BroadcastSetting(ctx, roomID, uid, data)
	return nil
}

// RelaySignal forwards an opaque signaling payload to another user.
func (o *Orchestrator) RelaySignal(_ context.Context, tid core.TransportID, to domain.UserID, payload json.RawMessage) error {
	uid, err := o.Identify(tid, "")
	if err != nil {
		return err
	}
	o.Relay.Relay(uid, to, payload)
	return nil
}

func (o *Orchestrator) CallInfo(roomID domain.RoomID) CallInfo {
	return CallInfo{
		RoomID:       roomID,
		State:        o.Calls.State(roomID).String(),
		Participants: o.Calls.Roster(roomID),
	}
}

func (o *Orchestrator) member(ctx context.Context, roomID domain.RoomID, uid domain.UserID) error {
	room, err := o.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasMember(uid) {
		return app.ErrNotMember
	}
	return nil
}
