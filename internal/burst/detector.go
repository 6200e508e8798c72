package burst

import (
	"sync"
	"time"

	"linkkeeper/internal/utils"
)

// Detector tracks link events per channel over a sliding window and decides
// whether a channel is currently in a link burst.
type Detector struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	channels  map[string]*utils.SlidingWindow
}

func NewDetector(window time.Duration, threshold int) *Detector {
	return &Detector{
		window:    window,
		threshold: threshold,
		channels:  make(map[string]*utils.SlidingWindow),
	}
}

// Record adds a link event for the channel and returns the live count.
func (d *Detector) Record(channelID string, now time.Time) int {
	d.mu.Lock()
	win, ok := d.channels[channelID]
	if !ok {
		win = utils.NewSlidingWindow(d.window)
		d.channels[channelID] = win
	}
	d.mu.Unlock()

	return win.Add(now)
}

// Count returns the live event count for the channel without recording.
func (d *Detector) Count(channelID string, now time.Time) int {
	d.mu.Lock()
	win, ok := d.channels[channelID]
	d.mu.Unlock()
	if !ok {
		return 0
	}
	return win.Count(now)
}

// Bursting reports whether the channel's live count exceeds the threshold.
// Exactly at the threshold is still normal traffic.
func (d *Detector) Bursting(channelID string, now time.Time) bool {
	return d.Count(channelID, now) > d.threshold
}

func (d *Detector) Threshold() int {
	return d.threshold
}

// Sweep drops channels whose windows have gone quiet, bounding memory on
// servers with many short-lived active channels.
func (d *Detector) Sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for id, win := range d.channels {
		if win.Count(now) == 0 {
			delete(d.channels, id)
			removed++
		}
	}
	return removed
}
