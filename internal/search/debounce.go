package search

import (
	"sync"
	"time"
)

// DefaultDelay is the pause after the last keystroke before a query runs.
const DefaultDelay = 250 * time.Millisecond

// Poster delivers a callback on the render thread.
type Poster interface {
	Post(fn func())
}

// Debouncer runs only the last of a burst of calls, once the burst has been
// quiet for the delay. Every call invalidates the previous pending one, also
// after it has fired but before the render thread picked it up.
type Debouncer struct {
	delay  time.Duration
	poster Poster

	mu    sync.Mutex
	token uint64
	timer *time.Timer
}

// NewDebouncer returns a debouncer delivering through poster.
func NewDebouncer(delay time.Duration, poster Poster) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, poster: poster}
}

// Call schedules fn, replacing any pending call.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.token++
	token := d.token
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		if !d.current(token) {
			return
		}
		d.poster.Post(func() {
			if d.current(token) {
				fn()
			}
		})
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) current(token uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return token == d.token
}
