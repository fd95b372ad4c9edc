package overlay

import (
	"context"
	"sync"
)

// Poster delivers a callback on the render thread.
type Poster interface {
	Post(fn func())
}

// Tracker issues overlay requests without blocking the caller. Each request
// carries a generation token; a response is applied only if no newer request
// or Cancel happened in the meantime. In-flight fetches are not cancelled.
type Tracker struct {
	poster Poster
	caches map[Kind]*Cache

	mu  sync.Mutex
	gen uint64
}

// NewTracker returns a tracker delivering results through poster.
func NewTracker(poster Poster, caches ...*Cache) *Tracker {
	t := &Tracker{poster: poster, caches: make(map[Kind]*Cache, len(caches))}
	for _, c := range caches {
		if c != nil {
			t.caches[c.Kind()] = c
		}
	}
	return t
}

// Request fetches kind in the background and posts apply with the result. An
// unknown kind delivers an empty snapshot. It returns the request token.
func (t *Tracker) Request(kind Kind, apply func(Snapshot)) uint64 {
	t.mu.Lock()
	t.gen++
	token := t.gen
	t.mu.Unlock()

	cache := t.caches[kind]
	go func() {
		snap := Snapshot{Kind: kind}
		if cache != nil {
			snap = cache.Get(context.Background())
		}
		t.poster.Post(func() {
			if t.Current(token) {
				apply(snap)
			}
		})
	}()
	return token
}

// Cancel supersedes any outstanding request.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	t.gen++
	t.mu.Unlock()
}

// Current reports whether token belongs to the latest request.
func (t *Tracker) Current(token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return token == t.gen
}
