package render

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"starmap/internal/metrics"
)

// ImageLoader fetches the icon for an image identifier.
type ImageLoader interface {
	LoadImage(ctx context.Context, id int64) (image.Image, error)
}

// ImageCache holds marker icons keyed by image identifier. Entries are only
// ever added, never replaced or removed, so lookups are safe from concurrent
// draw passes. Each identifier is loaded at most once; failed loads leave no
// entry and the marker keeps its fallback shape.
type ImageCache struct {
	loader  ImageLoader
	sched   *Scheduler
	log     zerolog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu        sync.RWMutex
	images    map[int64]image.Image
	attempted map[int64]struct{}
}

// NewImageCache returns a cache that loads through loader and asks sched for
// a redraw when an icon arrives. A nil loader disables icons.
func NewImageCache(loader ImageLoader, sched *Scheduler, log zerolog.Logger, m *metrics.Metrics) *ImageCache {
	return &ImageCache{
		loader:    loader,
		sched:     sched,
		log:       log,
		metrics:   m,
		timeout:   10 * time.Second,
		images:    make(map[int64]image.Image),
		attempted: make(map[int64]struct{}),
	}
}

// Get returns the icon for id. On the first miss it starts a background
// load; the image becomes available on a later frame.
func (c *ImageCache) Get(id int64) (image.Image, bool) {
	if c == nil || id == 0 {
		return nil, false
	}
	c.mu.RLock()
	img, ok := c.images[id]
	_, tried := c.attempted[id]
	c.mu.RUnlock()
	if ok || tried || c.loader == nil {
		return img, ok
	}

	c.mu.Lock()
	if _, tried = c.attempted[id]; tried {
		c.mu.Unlock()
		return nil, false
	}
	c.attempted[id] = struct{}{}
	c.mu.Unlock()

	go c.load(id)
	return nil, false
}

func (c *ImageCache) load(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	img, err := c.loader.LoadImage(ctx, id)
	c.metrics.ObserveImageLoad(err)
	if err != nil {
		c.log.Debug().Err(err).Int64("image_id", id).Msg("icon load failed")
		return
	}

	c.mu.Lock()
	c.images[id] = img
	c.mu.Unlock()
	if c.sched != nil {
		c.sched.Invalidate()
	}
}

// Len returns the number of loaded icons.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// HTTPImageLoader fetches icons from a URL template containing one %d verb.
type HTTPImageLoader struct {
	Client      *http.Client
	URLTemplate string
}

// LoadImage implements ImageLoader. PNG, JPEG and WebP are accepted.
func (l HTTPImageLoader) LoadImage(ctx context.Context, id int64) (image.Image, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(l.URLTemplate, id), nil)
	if err != nil {
		return nil, fmt.Errorf("build icon request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch icon %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch icon %d: status %d", id, resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode icon %d: %w", id, err)
	}
	return img, nil
}
