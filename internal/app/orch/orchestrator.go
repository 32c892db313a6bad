// Package orch wires the coordination components together and exposes
// them as per-event operations for the transport adapters.
package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrIdentityMismatch marks an event whose claimed user is not the
// transport's registered user.
var ErrIdentityMismatch = errors.New("claimed identity does not match session")

type Deps struct {
	State         core.StateStore
	Transport     core.Transport
	Rooms         core.RoomStore
	Messages      core.MessageStore
	Notifications core.NotificationStore
	Users         core.UserStore
}

type Orchestrator struct {
	Registry      *app.Registry
	Rooms         *app.RoomResolver
	Calls         *app.CallCoordinator
	Relay         *app.SignalRelay
	Messages      *app.MessageFanout
	Notifications *app.NotificationFanout

	transport core.Transport
}

func New(d Deps) *Orchestrator {
	if d.State == nil {
		d.State = app.NewMemoryState()
	}
	reg := app.NewRegistry(d.State, d.Transport)
	rooms := app.NewRoomResolver(d.Rooms)
	calls := app.NewCallCoordinator(d.State, reg, rooms)
	reg.SetCallLeaver(calls)

	return &Orchestrator{
		Registry:      reg,
		Rooms:         rooms,
		Calls:         calls,
		Relay:         app.NewSignalRelay(reg),
		Messages:      app.NewMessageFanout(rooms, d.Messages, d.Users, reg),
		Notifications: app.NewNotificationFanout(d.Notifications, d.Users, reg),
		transport:     d.Transport,
	}
}

// Connect registers uid on tid.
func (o *Orchestrator) Connect(ctx context.Context, tid core.TransportID, uid domain.UserID) {
	o.Registry.Register(ctx, uid, tid)
}

// Disconnect runs the cleanup of a transport that went away. The caller
// must not deliver further events for tid afterwards.
func (o *Orchestrator) Disconnect(ctx context.Context, tid core.TransportID) {
	o.Registry.Unregister(ctx, tid)
}

// Leave handles an explicit presence.leave.
func (o *Orchestrator) Leave(ctx context.Context, tid core.TransportID, claimed domain.UserID) error {
	if _, err := o.Identify(tid, claimed); err != nil {
		return err
	}
	o.Registry.Unregister(ctx, tid)
	return nil
}

func (o *Orchestrator) Ping(tid core.TransportID) {
	o.reply(tid, core.EventPong, struct{}{})
}

// Identify returns the user registered on tid. A non-empty claimed id
// must match it.
func (o *Orchestrator) Identify(tid core.TransportID, claimed domain.UserID) (domain.UserID, error) {
	s, ok := o.Registry.LookupByTransport(tid)
	if !ok {
		return "", core.ErrNoTransport
	}
	if claimed != "" && claimed != s.UserID {
		return "", ErrIdentityMismatch
	}
	return s.UserID, nil
}

func (o *Orchestrator) reply(tid core.TransportID, event string, payload any) {
	if err := o.transport.Send(tid, event, payload); err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("transport", string(tid)).Str("event", event).Msg("reply dropped")
	}
}

// fail reports err to the originating transport only.
func (o *Orchestrator) fail(tid core.TransportID, event string, err error) {
	log.Warn().Err(err).Str("module", "orch").Str("transport", string(tid)).Str("event", event).Msg("event failed")
	o.reply(tid, core.EventError, core.ErrorEvent{Event: event, Error: err.Error()})
}
