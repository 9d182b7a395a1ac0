package channel

import (
	"sync"
	"time"
)

const (
	rateLimitPerWindow = 100
	rateLimitWindow    = time.Minute
	rateLimitStale     = 5 * time.Minute
)

// RateLimiter caps envelopes per identity per minute.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	count       int
	windowStart time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{clients: make(map[string]*clientWindow)}
}

// Allow reports whether the identity may send another envelope in the
// current window.
func (rl *RateLimiter) Allow(identity string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.clients[identity]
	if !ok || now.Sub(w.windowStart) >= rateLimitWindow {
		rl.clients[identity] = &clientWindow{count: 1, windowStart: now}
		return true
	}
	if w.count >= rateLimitPerWindow {
		return false
	}
	w.count++
	return true
}

// Cleanup removes identities idle for several windows.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rateLimitStale)
	for identity, w := range rl.clients {
		if w.windowStart.Before(cutoff) {
			delete(rl.clients, identity)
		}
	}
}
