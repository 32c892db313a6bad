package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/go-playground/validator/v10"
	gojson "github.com/goccy/go-json"
)

// Inbound event names.
const (
	evPresenceJoin       = "presence.join"
	evPresenceLeave      = "presence.leave"
	evMessageSend        = "message.send"
	evCallStart          = "call.start"
	evCallJoin           = "call.join"
	evCallLeave          = "call.leave"
	evCallAnswer         = "call.answer"
	evCallSetting        = "call.setting"
	evSignalSend         = "signal.send"
	evRoomResolveDirect  = "room.resolveDirect"
	evNotificationCreate = "notification.create"
	evPing               = "ping"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type envelope struct {
	Type    string             `json:"type"`
	Payload gojson.RawMessage `json:"payload,omitempty"`
}

type outEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type presenceJoin struct {
	UserID domain.UserID `json:"userId" validate:"required,max=64"`
}

type presenceLeave struct {
	UserID domain.UserID `json:"userId" validate:"required"`
}

type messageSend struct {
	RoomID  domain.RoomID `json:"roomId" validate:"required"`
	Content string        `json:"content" validate:"required,max=4000"`
}

type callStart struct {
	RoomID   domain.RoomID  `json:"roomId" validate:"required"`
	CallerID domain.UserID  `json:"callerId" validate:"required"`
	Payload  map[string]any `json:"payload"`
}

type callMember struct {
	RoomID domain.RoomID `json:"roomId" validate:"required"`
	UserID domain.UserID `json:"userId" validate:"required"`
}

type callAnswer struct {
	RoomID   domain.RoomID `json:"roomId" validate:"required"`
	CallerID domain.UserID `json:"callerId" validate:"required"`
}

type callSetting struct {
	RoomID domain.RoomID  `json:"roomId" validate:"required"`
	Data   map[string]any `json:"data" validate:"required"`
}

type signalSend struct {
	ToUserID domain.UserID   `json:"toUserId" validate:"required"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
}

type resolveDirect struct {
	UserA domain.UserID `json:"userA" validate:"required"`
	UserB domain.UserID `json:"userB" validate:"required,nefield=UserA"`
}

type notificationCreate struct {
	ReceiverIDs []domain.UserID `json:"receiverIds" validate:"required,min=1,max=500,dive,required"`
	Type        string          `json:"type" validate:"required,max=64"`
	URL         string          `json:"url" validate:"omitempty,max=2048"`
	Payload     map[string]any  `json:"payload"`
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := gojson.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("bad envelope: %w", err)
	}
	if env.Type == "" {
		return envelope{}, fmt.Errorf("bad envelope: missing type")
	}
	return env, nil
}

// decodePayload parses and validates the body of one event.
func decodePayload[T any](raw gojson.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		raw = gojson.RawMessage("{}")
	}
	if err := gojson.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("bad payload: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return p, fmt.Errorf("invalid payload: %w", err)
	}
	return p, nil
}

func encodeEvent(event string, payload any) ([]byte, error) {
	return gojson.Marshal(outEnvelope{Type: event, Payload: payload})
}
