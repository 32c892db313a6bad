package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Lounge/internal/core"
)

// EventRateLimiter caps inbound events per transport over a sliding window.
type EventRateLimiter struct {
	mu       sync.Mutex
	history  map[core.TransportID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewEventRateLimiter(limit int, interval time.Duration) *EventRateLimiter {
	return &EventRateLimiter{
		history:  make(map[core.TransportID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *EventRateLimiter) Allow(tid core.TransportID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[tid]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[tid] = fresh
		return false
	}
	rl.history[tid] = append(fresh, now)
	return true
}

// Forget drops the history of a closed transport.
func (rl *EventRateLimiter) Forget(tid core.TransportID) {
	rl.mu.Lock()
	delete(rl.history, tid)
	rl.mu.Unlock()
}
