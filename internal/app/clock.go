package app

import (
	"time"
)

// DefaultFrameInterval is one display refresh at 60 Hz.
const DefaultFrameInterval = time.Second / 60

// FrameClock calls a function once per display refresh from a background
// goroutine. The callback must hand work over to the render thread itself.
type FrameClock struct {
	interval time.Duration
	stopCh   chan struct{}
	onTick   func()
}

// NewFrameClock creates a clock firing every interval. A non-positive
// interval uses DefaultFrameInterval.
func NewFrameClock(interval time.Duration, onTick func()) *FrameClock {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameClock{interval: interval, onTick: onTick}
}

// Start begins ticking in a background goroutine.
func (c *FrameClock) Start() {
	// Create a fresh stop channel in case we're restarting
	c.stopCh = make(chan struct{})
	go c.loop(c.stopCh)
}

// Stop stops the ticking goroutine.
func (c *FrameClock) Stop() {
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

func (c *FrameClock) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.onTick()
		}
	}
}
