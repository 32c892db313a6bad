package app

import (
	"context"
	"slices"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

type CallState int

const (
	CallIdle CallState = iota
	CallConnecting
	CallActive
)

func (s CallState) String() string {
	switch s {
	case CallConnecting:
		return "connecting"
	case CallActive:
		return "active"
	default:
		return "idle"
	}
}

func stateOf(size int) CallState {
	switch {
	case size >= 2:
		return CallActive
	case size == 1:
		return CallConnecting
	default:
		return CallIdle
	}
}

var _ CallLeaver = (*CallCoordinator)(nil)

// CallCoordinator owns the per-room call rosters. A room with one
// participant is ringing, two or more make an active call.
type CallCoordinator struct {
	rosters  core.RosterStore
	sessions core.SessionStore
	registry *Registry
	rooms    *RoomResolver
}

func NewCallCoordinator(state core.StateStore, registry *Registry, rooms *RoomResolver) *CallCoordinator {
	return &CallCoordinator{rosters: state, sessions: state, registry: registry, rooms: rooms}
}

// Start puts the caller into the roster of room and rings every other
// member that is online and not busy in another call. Skipped members
// are not reported.
func (c *CallCoordinator) Start(ctx context.Context, room *domain.Room, callerID domain.UserID, payload map[string]any) error {
	if !room.HasMember(callerID) {
		return ErrNotMember
	}
	caller, ok := c.bind(ctx, callerID, room.ID)
	if !ok {
		log.Debug().Str("module", "app.calls").Str("user", string(callerID)).Msg("start: caller offline")
		return nil
	}

	before, after := c.rosters.UpdateRoster(room.ID, c.upsert(room.ID, core.Participant{
		UserID:      callerID,
		TransportID: caller.TransportID,
	}))

	rung := 0
	for _, member := range room.MemberIDs {
		if member == callerID || inRoster(after, member) {
			continue
		}
		s, ok := c.registry.Lookup(member)
		if !ok {
			continue
		}
		if s.InCall() && s.ActiveCall != room.ID {
			continue
		}
		if c.registry.sendTransport(s.TransportID, core.EventCallIncoming, core.CallIncoming{
			RoomID:   room.ID,
			CallerID: callerID,
			Payload:  payload,
		}) {
			rung++
		}
	}
	log.Info().Str("module", "app.calls").
		Str("room", string(room.ID)).
		Str("caller", string(callerID)).
		Int("rung", rung).
		Msg("call started")

	c.announceTransition(ctx, room.ID, len(before), len(after))
	return nil
}

// Join adds the user to the roster of roomID, or refreshes its transport
// on reconnection, and sends the joiner the ids of everyone else.
func (c *CallCoordinator) Join(ctx context.Context, roomID domain.RoomID, uid domain.UserID) ([]domain.UserID, error) {
	s, ok := c.bind(ctx, uid, roomID)
	if !ok {
		log.Debug().Str("module", "app.calls").Str("user", string(uid)).Msg("join: user offline")
		return nil, nil
	}

	before, after := c.rosters.UpdateRoster(roomID, c.upsert(roomID, core.Participant{
		UserID:      uid,
		TransportID: s.TransportID,
	}))

	peers := make([]domain.UserID, 0, len(after))
	for _, p := range after {
		if p.UserID != uid {
			peers = append(peers, p.UserID)
		}
	}
	c.registry.sendTransport(s.TransportID, core.EventCallPeers, core.CallPeers{RoomID: roomID, PeerIDs: peers})
	log.Info().Str("module", "app.calls").
		Str("room", string(roomID)).
		Str("user", string(uid)).
		Int("size", len(after)).
		Msg("joined call")

	c.announceTransition(ctx, roomID, len(before), len(after))
	return peers, nil
}

// Leave removes uid from the roster of roomID. When fewer than two
// participants remain the call is torn down. Absent pairs are ignored.
// Events go to each member's current primary session, which may be newer
// than the transport recorded in the roster.
func (c *CallCoordinator) Leave(ctx context.Context, uid domain.UserID, roomID domain.RoomID) {
	var (
		removed  bool
		released []core.Participant
	)
	before, after := c.rosters.UpdateRoster(roomID, func(r []core.Participant) []core.Participant {
		r = c.coalesce(roomID, r)
		i := slices.IndexFunc(r, func(p core.Participant) bool { return p.UserID == uid })
		if i < 0 {
			return r
		}
		removed = true
		r = slices.Delete(r, i, i+1)
		if len(r) < 2 {
			released = r
			return nil
		}
		return r
	})
	c.sessions.ClearActiveCall(uid, roomID)
	if !removed {
		return
	}

	if len(after) == 0 {
		for _, p := range released {
			c.sessions.ClearActiveCall(p.UserID, roomID)
			c.registry.SendTo(p.UserID, core.EventCallEnded, core.CallEnded{RoomID: roomID})
		}
		log.Info().Str("module", "app.calls").Str("room", string(roomID)).Str("user", string(uid)).Msg("call ended")
		c.announceTransition(ctx, roomID, len(before), 0)
		return
	}

	for _, p := range after {
		c.registry.SendTo(p.UserID, core.EventCallParticipantLeft, core.CallParticipantLeft{
			RoomID: roomID,
			UserID: uid,
		})
	}
	log.Info().Str("module", "app.calls").
		Str("room", string(roomID)).
		Str("user", string(uid)).
		Int("size", len(after)).
		Msg("left call")
}

// Answer joins the callee and tells the caller the ring was accepted.
func (c *CallCoordinator) Answer(ctx context.Context, roomID domain.RoomID, calleeID, callerID domain.UserID) error {
	if _, ok := c.registry.Lookup(calleeID); !ok {
		return nil
	}
	if _, err := c.Join(ctx, roomID, calleeID); err != nil {
		return err
	}
	c.registry.SendTo(callerID, core.EventCallAnswered, core.CallAnswered{RoomID: roomID, UserID: calleeID})
	return nil
}

// BroadcastSetting relays a participant's media settings to the rest of
// the roster. Users outside the roster are ignored.
func (c *CallCoordinator) BroadcastSetting(_ context.Context, roomID domain.RoomID, uid domain.UserID, data map[string]any) {
	roster := c.rosters.Roster(roomID)
	if !inRoster(roster, uid) {
		return
	}
	for _, p := range roster {
		if p.UserID == uid {
			continue
		}
		c.registry.SendTo(p.UserID, core.EventCallSetting, core.CallSetting{
			RoomID: roomID,
			UserID: uid,
			Data:   data,
		})
	}
}

func (c *CallCoordinator) State(roomID domain.RoomID) CallState {
	return stateOf(len(c.rosters.Roster(roomID)))
}

// Roster returns the user ids in the call, in join order.
func (c *CallCoordinator) Roster(roomID domain.RoomID) []domain.UserID {
	roster := c.rosters.Roster(roomID)
	out := make([]domain.UserID, 0, len(roster))
	for _, p := range roster {
		out = append(out, p.UserID)
	}
	return out
}

// bind makes roomID the active call of uid, leaving any other call first.
func (c *CallCoordinator) bind(ctx context.Context, uid domain.UserID, roomID domain.RoomID) (core.Session, bool) {
	s, ok := c.registry.Lookup(uid)
	if !ok {
		return core.Session{}, false
	}
	if s.InCall() && s.ActiveCall != roomID {
		c.Leave(ctx, uid, s.ActiveCall)
	}
	c.sessions.SetActiveCall(uid, roomID)
	s.ActiveCall = roomID
	return s, true
}

func (c *CallCoordinator) upsert(roomID domain.RoomID, p core.Participant) func([]core.Participant) []core.Participant {
	return func(r []core.Participant) []core.Participant {
		r = c.coalesce(roomID, r)
		for i := range r {
			if r[i].UserID == p.UserID {
				r[i].TransportID = p.TransportID
				return r
			}
		}
		return append(r, p)
	}
}

// coalesce folds repeated user ids into the first entry, keeping the
// latest transport.
func (c *CallCoordinator) coalesce(roomID domain.RoomID, r []core.Participant) []core.Participant {
	pos := make(map[domain.UserID]int, len(r))
	out := r[:0]
	for _, p := range r {
		if i, ok := pos[p.UserID]; ok {
			out[i].TransportID = p.TransportID
			log.Warn().Str("module", "app.calls").
				Str("room", string(roomID)).
				Str("user", string(p.UserID)).
				Msg("duplicate roster entry coalesced")
			continue
		}
		pos[p.UserID] = len(out)
		out = append(out, p)
	}
	return out
}

// announceTransition tells online room members when a call becomes
// active or an active call goes away.
func (c *CallCoordinator) announceTransition(ctx context.Context, roomID domain.RoomID, before, after int) {
	was, now := stateOf(before), stateOf(after)
	if was == now || (was != CallActive && now != CallActive) {
		return
	}
	if c.rooms == nil {
		return
	}
	room, err := c.rooms.GetByID(ctx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.calls").Str("room", string(roomID)).Msg("call state not announced")
		return
	}
	hasCall := now == CallActive
	for _, member := range room.MemberIDs {
		c.registry.SendTo(member, core.EventRoomCallState, core.RoomCallState{RoomID: roomID, HasCall: hasCall})
	}
}

func inRoster(r []core.Participant, uid domain.UserID) bool {
	return slices.ContainsFunc(r, func(p core.Participant) bool { return p.UserID == uid })
}
