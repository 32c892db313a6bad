package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

// CallLeaver removes a user from a call roster. The registry calls it when
// a session bound to a call goes away.
type CallLeaver interface {
	Leave(ctx context.Context, uid domain.UserID, room domain.RoomID)
}

// Registry maps user identities to their live transports and keeps every
// connected transport informed about who is online.
type Registry struct {
	state     core.SessionStore
	transport core.Transport
	now       func() time.Time

	mu     sync.RWMutex
	leaver CallLeaver
}

func NewRegistry(state core.SessionStore, transport core.Transport) *Registry {
	return &Registry{state: state, transport: transport, now: time.Now}
}

// SetCallLeaver wires the call coordinator in after construction.
func (r *Registry) SetCallLeaver(l CallLeaver) {
	r.mu.Lock()
	r.leaver = l
	r.mu.Unlock()
}

func (r *Registry) callLeaver() CallLeaver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.leaver
}

// Register binds uid to tid, making it the user's primary session, and
// broadcasts the presence snapshot.
func (r *Registry) Register(ctx context.Context, uid domain.UserID, tid core.TransportID) {
	s := core.Session{UserID: uid, TransportID: tid, ConnectedAt: r.now()}
	if cur, ok := r.state.SessionByTransport(tid); ok {
		if cur.UserID == uid {
			s.ActiveCall = cur.ActiveCall
			s.ConnectedAt = cur.ConnectedAt
		} else {
			// transport switches identity: the old one is gone
			r.release(ctx, cur)
		}
	}

	prev, replaced := r.state.PutSession(s)
	if replaced && s.ActiveCall == "" && prev.ActiveCall != "" {
		r.state.SetActiveCall(uid, prev.ActiveCall)
	}
	log.Info().Str("module", "app.registry").
		Str("user", string(uid)).
		Str("transport", string(tid)).
		Bool("replaced", replaced).
		Msg("registered session")

	r.broadcastSnapshot()
}

// Unregister drops the session of tid. A session still bound to a call
// leaves it first. Unknown transports are ignored.
func (r *Registry) Unregister(ctx context.Context, tid core.TransportID) {
	cur, ok := r.state.SessionByTransport(tid)
	if !ok {
		log.Debug().Str("module", "app.registry").Str("transport", string(tid)).Msg("unregister: unknown transport")
		return
	}
	r.release(ctx, cur)
	r.state.DeleteSession(tid)
	log.Info().Str("module", "app.registry").
		Str("user", string(cur.UserID)).
		Str("transport", string(tid)).
		Msg("unregistered session")

	r.broadcastSnapshot()
}

// release leaves the call of s when s is still its user's primary session.
// A stale transport of a reconnected user must not end the live call.
func (r *Registry) release(ctx context.Context, s core.Session) {
	if !s.InCall() {
		return
	}
	primary, ok := r.state.SessionByUser(s.UserID)
	if !ok || primary.TransportID != s.TransportID {
		return
	}
	if l := r.callLeaver(); l != nil {
		l.Leave(ctx, s.UserID, s.ActiveCall)
	}
}

func (r *Registry) Lookup(uid domain.UserID) (core.Session, bool) {
	return r.state.SessionByUser(uid)
}

func (r *Registry) LookupByTransport(tid core.TransportID) (core.Session, bool) {
	return r.state.SessionByTransport(tid)
}

// Online returns the sorted ids of users with a primary session.
func (r *Registry) Online() []domain.UserID {
	return r.state.OnlineUsers()
}

// SendTo delivers an event to the primary session of uid. It reports
// false when the user is offline or the transport refused the event.
func (r *Registry) SendTo(uid domain.UserID, event string, payload any) bool {
	s, ok := r.state.SessionByUser(uid)
	if !ok {
		return false
	}
	return r.sendTransport(s.TransportID, event, payload)
}

func (r *Registry) sendTransport(tid core.TransportID, event string, payload any) bool {
	if err := r.transport.Send(tid, event, payload); err != nil {
		log.Debug().Err(err).
			Str("module", "app.registry").
			Str("transport", string(tid)).
			Str("event", event).
			Msg("delivery skipped")
		return false
	}
	return true
}

func (r *Registry) broadcastSnapshot() {
	snap := core.PresenceSnapshot{Users: r.Online()}
	for _, s := range r.state.Sessions() {
		r.sendTransport(s.TransportID, core.EventPresenceSnapshot, snap)
	}
}
