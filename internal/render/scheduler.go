package render

import (
	"sync"
)

// Scheduler is the redraw gate. Anything that changes what is on screen calls
// Invalidate; asynchronous completions are handed over with Post and run on
// the render thread during the next Drain. Redraws happen at most once per
// tick no matter how many invalidations arrived.
type Scheduler struct {
	mu    sync.Mutex
	dirty bool
	queue []func()
	spare []func()
	wake  func()
}

// NewScheduler returns a scheduler that starts dirty so the first tick draws.
// wake, if not nil, is called (from any goroutine) whenever work arrives and
// can be used to request a display refresh.
func NewScheduler(wake func()) *Scheduler {
	return &Scheduler{dirty: true, wake: wake}
}

// Invalidate requests a redraw on the next tick.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	s.notify()
}

// Post queues fn to run on the render thread during the next Drain and marks
// the frame dirty. Safe to call from any goroutine.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.dirty = true
	s.mu.Unlock()
	s.notify()
}

func (s *Scheduler) notify() {
	if s.wake != nil {
		s.wake()
	}
}

// Drain runs every queued callback once and returns how many ran. Callbacks
// posted while draining wait for the next tick.
func (s *Scheduler) Drain() int {
	s.mu.Lock()
	batch := s.queue
	s.queue = s.spare[:0]
	s.mu.Unlock()

	for _, fn := range batch {
		if fn != nil {
			fn()
		}
	}

	clear(batch)
	s.mu.Lock()
	s.spare = batch[:0]
	s.mu.Unlock()
	return len(batch)
}

// TakeRedraw reports whether a redraw is due and clears the flag.
func (s *Scheduler) TakeRedraw() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dirty
	s.dirty = false
	return d
}

// Dirty reports whether a redraw is due without clearing it.
func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
