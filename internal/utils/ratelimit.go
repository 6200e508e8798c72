package utils

import (
	"sync"
	"time"
)

// RateLimiter enforces a per-user cooldown for named operations.
type RateLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{last: make(map[string]time.Time)}
}

// Allow registers an attempt and reports whether it is inside the cooldown.
// A limited attempt does not reset the cooldown clock.
func (r *RateLimiter) Allow(userID, op string, cooldown time.Duration, now time.Time) bool {
	key := userID + "|" + op
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.last[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	r.last[key] = now
	return true
}

// Remaining returns how long until the operation is allowed again.
func (r *RateLimiter) Remaining(userID, op string, cooldown time.Duration, now time.Time) time.Duration {
	key := userID + "|" + op
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.last[key]
	if !ok {
		return 0
	}
	remaining := cooldown - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Trim drops entries older than maxAge. Called from the periodic cleanup
// sweep so long-running processes do not accumulate stale users.
func (r *RateLimiter) Trim(maxAge time.Duration, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, last := range r.last {
		if now.Sub(last) > maxAge {
			delete(r.last, key)
		}
	}
}
