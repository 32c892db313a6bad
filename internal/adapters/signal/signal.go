package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Lounge/internal/app/orch"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// SessionUserKey is the cookie session key holding the authenticated user.
const SessionUserKey = "user_id"

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	return o
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Hub     *Hub
	Limiter *EventRateLimiter
	opts    Options
}

func NewSignalWSController(o *orch.Orchestrator, hub *Hub, limiter *EventRateLimiter, opts Options) *SignalWSController {
	return &SignalWSController{
		Orch:    o,
		Hub:     hub,
		Limiter: limiter,
		opts:    opts.withDefaults(),
	}
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

// TrySend queues f without blocking.
func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and serves the connection until it
// drops. A cookie session carrying a user id registers it right away.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	var uid domain.UserID
	if raw, ok := sessions.Default(c).Get(SessionUserKey).(string); ok {
		uid, _ = domain.ParseUserID(raw)
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	tid := core.TransportID(uuid.NewString())
	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	ctl.Hub.Attach(tid, conn)
	log.Info().Str("module", "signal").Str("transport", string(tid)).Str("user", string(uid)).Msg("new WS connection")

	if uid != "" {
		ctl.Orch.Connect(ctx, tid, uid)
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, tid, uid, conn)
}
