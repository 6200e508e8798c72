package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts events inside a rolling time window. Entries older
// than the window are pruned on every access, so a burst straddling a
// bucket edge is never undercounted.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	events []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

// Add records an event and returns the number of live events including it.
func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	w.events = append(w.events, now)
	return len(w.events)
}

// Count prunes stale events and returns the number still inside the window.
func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return len(w.events)
}

func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, event := range w.events {
		if event.After(cutoff) {
			break
		}
		idx++
	}
	w.events = w.events[idx:]
}
