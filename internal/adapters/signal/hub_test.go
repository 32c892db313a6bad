package signal

import (
	"sync"
	"testing"

	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.full {
		return ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func TestHub_Send(t *testing.T) {
	h := NewHub(nil)
	conn := &fakeConn{}
	h.Attach("t1", conn)

	require.NoError(t, h.Send("t1", core.EventPong, struct{}{}))
	require.Len(t, conn.frames, 1)
	assert.JSONEq(t, `{"type":"pong","payload":{}}`, string(conn.frames[0]))

	assert.ErrorIs(t, h.Send("t2", core.EventPong, nil), core.ErrNoTransport)

	h.Detach("t1")
	assert.Zero(t, h.Count())
	assert.ErrorIs(t, h.Send("t1", core.EventPong, nil), core.ErrNoTransport)
}

func TestHub_Backpressure(t *testing.T) {
	tests := []struct {
		name       string
		action     app.BackpressureAction
		wantClosed bool
	}{
		{"drop keeps connection", app.DropEvent, false},
		{"kick closes connection", app.KickConnection, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(app.SimplePolicy{Action: tt.action})
			conn := &fakeConn{full: true}
			h.Attach("t1", conn)

			err := h.Send("t1", core.EventMessageNew, core.MessageNew{})
			assert.ErrorIs(t, err, ErrBackpressure)
			assert.Equal(t, tt.wantClosed, conn.closed)
		})
	}
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub(nil)
	a, b := &fakeConn{}, &fakeConn{}
	h.Attach("a", a)
	h.Attach("b", b)
	h.CloseAll()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
