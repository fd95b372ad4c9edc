package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"starmap/internal/metrics"
)

// Cache keeps the last successful snapshot of a source for a TTL. Concurrent
// refreshes share one fetch. A failed fetch yields an empty snapshot and is
// logged, never returned as an error.
type Cache struct {
	kind    Kind
	src     Source
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	snap  Snapshot
	valid bool
}

// NewCache wraps src. A zero ttl disables caching.
func NewCache(kind Kind, src Source, ttl, timeout time.Duration, log zerolog.Logger, m *metrics.Metrics) *Cache {
	return &Cache{
		kind:    kind,
		src:     src,
		ttl:     ttl,
		timeout: timeout,
		log:     log.With().Str("overlay", string(kind)).Logger(),
		metrics: m,
		now:     time.Now,
	}
}

// Kind returns the overlay kind served by the cache.
func (c *Cache) Kind() Kind { return c.kind }

// Get returns a fresh snapshot, fetching when the cached one has expired.
func (c *Cache) Get(ctx context.Context) Snapshot {
	if snap, ok := c.cached(); ok {
		return snap
	}

	v, _, _ := c.group.Do(string(c.kind), func() (interface{}, error) {
		if snap, ok := c.cached(); ok {
			return snap, nil
		}
		return c.refresh(ctx), nil
	})
	return v.(Snapshot)
}

func (c *Cache) cached() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.valid && c.now().Sub(c.snap.FetchedAt) < c.ttl {
		return c.snap, true
	}
	return Snapshot{}, false
}

func (c *Cache) refresh(ctx context.Context) Snapshot {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := c.now()
	owners, err := c.src.Fetch(ctx)
	c.metrics.ObserveOverlayFetch(string(c.kind), err)
	if err != nil {
		c.log.Warn().Err(err).Msg("overlay fetch failed, rendering without ownership")
		return Snapshot{Kind: c.kind}
	}

	snap := Snapshot{Kind: c.kind, Owners: owners, FetchedAt: start}
	c.mu.Lock()
	c.snap = snap
	c.valid = true
	c.mu.Unlock()
	c.log.Debug().Int("systems", len(owners)).Dur("elapsed", c.now().Sub(start)).Msg("overlay refreshed")
	return snap
}

// Invalidate drops the cached snapshot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
