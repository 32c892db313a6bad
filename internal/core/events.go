package core

import (
	"encoding/json"

	"github.com/dkeye/Lounge/internal/domain"
)

// Outbound event names.
const (
	EventPresenceSnapshot    = "presence.snapshot"
	EventMessageNew          = "message.new"
	EventCallIncoming        = "call.incoming"
	EventCallPeers           = "call.peers"
	EventCallEnded           = "call.ended"
	EventCallParticipantLeft = "call.participantLeft"
	EventCallAnswered        = "call.answered"
	EventCallSetting         = "call.setting"
	EventRoomCallState       = "room.callState"
	EventRoomResolved        = "room.resolved"
	EventSignalReceive       = "signal.receive"
	EventNotificationNew     = "notification.new"
	EventPong                = "pong"
	EventError               = "error"
)

type PresenceSnapshot struct {
	Users []domain.UserID `json:"users"`
}

type MessageNew struct {
	Message *domain.Message `json:"message"`
}

type CallIncoming struct {
	RoomID   domain.RoomID  `json:"roomId"`
	CallerID domain.UserID  `json:"callerId"`
	Payload  map[string]any `json:"payload,omitempty"`
}

type CallPeers struct {
	RoomID  domain.RoomID   `json:"roomId"`
	PeerIDs []domain.UserID `json:"peerIds"`
}

type CallEnded struct {
	RoomID domain.RoomID `json:"roomId"`
}

type CallParticipantLeft struct {
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
}

type CallAnswered struct {
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
}

type CallSetting struct {
	RoomID domain.RoomID  `json:"roomId"`
	UserID domain.UserID  `json:"userId"`
	Data   map[string]any `json:"data"`
}

type RoomCallState struct {
	RoomID  domain.RoomID `json:"roomId"`
	HasCall bool          `json:"hasCall"`
}

type RoomResolved struct {
	Room *domain.Room `json:"room"`
}

// SignalReceive carries an opaque offer/answer/candidate payload.
type SignalReceive struct {
	FromUserID domain.UserID   `json:"fromUserId"`
	Payload    json.RawMessage `json:"payload"`
}

type NotificationNew struct {
	Notification *domain.Notification `json:"notification"`
}

type ErrorEvent struct {
	Event string `json:"event,omitempty"`
	Error string `json:"error"`
}
