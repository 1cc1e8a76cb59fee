package signal

import (
	"sync"
	"time"
)

// HandshakeLimiter bounds how often one remote address may start a
// handshake inside a sliding window.
type HandshakeLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
}

func NewHandshakeLimiter(limit int, interval time.Duration) *HandshakeLimiter {
	return &HandshakeLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *HandshakeLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[addr]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[addr] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[addr] = fresh
	return true
}
