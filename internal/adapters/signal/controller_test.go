package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Lounge/internal/adapters/store/memstore"
	"github.com/dkeye/Lounge/internal/app/orch"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	gojson "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv  *httptest.Server
	hub  *Hub
	orch *orch.Orchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	o := orch.New(orch.Deps{
		Transport:     hub,
		Rooms:         memstore.NewRooms(false),
		Messages:      memstore.NewMessages(),
		Notifications: memstore.NewNotifications(),
		Users:         memstore.NewUsers(),
	})
	ctl := NewSignalWSController(o, hub, NewEventRateLimiter(100, time.Second), Options{})

	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, hub: hub, orch: o}
}

type frame struct {
	Type    string             `json:"type"`
	Payload gojson.RawMessage `json:"payload"`
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (ts *testServer) dial(t *testing.T) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(typ string, payload any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"type": typ, "payload": payload}))
}

// next returns the next frame of type typ, skipping everything else.
func (c *client) next(typ string) frame {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", typ)
		var f frame
		require.NoError(c.t, gojson.Unmarshal(data, &f))
		if f.Type == typ {
			return f
		}
	}
}

func (c *client) join(uid string) {
	c.t.Helper()
	c.send(evPresenceJoin, map[string]any{"userId": uid})
	c.next(core.EventPresenceSnapshot)
}

func TestController_CallOverWebSocket(t *testing.T) {
	ts := newTestServer(t)
	a, b := ts.dial(t), ts.dial(t)
	a.join("A")
	b.join("B")

	a.send(evRoomResolveDirect, map[string]any{"userA": "A", "userB": "B"})
	var resolved struct {
		Room struct {
			ID string `json:"id"`
		} `json:"room"`
	}
	require.NoError(t, gojson.Unmarshal(a.next(core.EventRoomResolved).Payload, &resolved))
	roomID := resolved.Room.ID
	require.NotEmpty(t, roomID)

	a.send(evCallStart, map[string]any{"roomId": roomID, "callerId": "A"})
	var incoming core.CallIncoming
	require.NoError(t, gojson.Unmarshal(b.next(core.EventCallIncoming).Payload, &incoming))
	assert.EqualValues(t, "A", incoming.CallerID)

	b.send(evCallJoin, map[string]any{"roomId": roomID, "userId": "B"})
	var peers core.CallPeers
	require.NoError(t, gojson.Unmarshal(b.next(core.EventCallPeers).Payload, &peers))
	assert.EqualValues(t, []string{"A"}, toStrings(peers.PeerIDs))

	b.send(evSignalSend, map[string]any{"toUserId": "A", "payload": map[string]any{"sdp": "v=0"}})
	var sig struct {
		FromUserID string          `json:"fromUserId"`
		Payload    gojson.RawMessage `json:"payload"`
	}
	require.NoError(t, gojson.Unmarshal(a.next(core.EventSignalReceive).Payload, &sig))
	assert.Equal(t, "B", sig.FromUserID)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(sig.Payload))

	require.NoError(t, a.conn.Close())
	b.next(core.EventCallEnded)

	assert.Eventually(t, func() bool { return ts.hub.Count() == 1 }, time.Second, 10*time.Millisecond)
	_, ok := ts.orch.Registry.Lookup("A")
	assert.False(t, ok)
}

func TestController_MalformedEventsGetNoReply(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t)
	a.join("A")

	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	a.send(evMessageSend, map[string]any{"roomId": "r"})
	a.send(evCallJoin, map[string]any{"roomId": "r", "userId": "someone-else"})
	a.send(evPing, nil)

	_ = a.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := a.conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, gojson.Unmarshal(data, &f))
	assert.Equal(t, core.EventPong, f.Type)
}

func TestController_PersistenceErrorReachesOriginator(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t)
	a.join("A")

	a.send(evMessageSend, map[string]any{"roomId": "missing", "content": "hi"})
	var e core.ErrorEvent
	require.NoError(t, gojson.Unmarshal(a.next(core.EventError).Payload, &e))
	assert.Equal(t, evMessageSend, e.Event)
	assert.NotEmpty(t, e.Error)
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
