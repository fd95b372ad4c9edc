// Package headless renders map and system views to PNG without a window.
// It backs the maprender tool and the HTTP surface.
package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"starmap/internal/app"
	"starmap/internal/camera"
	"starmap/internal/cluster"
	"starmap/internal/layout"
	"starmap/internal/metrics"
	"starmap/internal/overlay"
	"starmap/internal/render"
	"starmap/internal/render/raster"
	"starmap/internal/search"
	"starmap/internal/universe"
	"starmap/pkg/geometry"
)

// MaxDimension bounds the width and height of a rendered image.
const MaxDimension = 4096

// ErrBadSize is returned for a non-positive or oversized image.
var ErrBadSize = errors.New("invalid image size")

// Renderer builds one-shot scenes over a shared dataset. It is safe for
// concurrent use; each scene owns its view.
type Renderer struct {
	data     *universe.Dataset
	opts     app.Options
	log      zerolog.Logger
	metrics  *metrics.Metrics
	overlays map[overlay.Kind]*overlay.Cache
	images   *render.ImageCache
	index    *search.Index
}

// New creates a renderer. Overlay caches are shared by every scene, so
// concurrent requests for the same overlay trigger one fetch.
func New(data *universe.Dataset, opts app.Options, deps app.Deps) *Renderer {
	r := &Renderer{
		data:     data,
		opts:     opts,
		log:      deps.Log,
		metrics:  deps.Metrics,
		overlays: make(map[overlay.Kind]*overlay.Cache),
		index:    search.NewIndex(data, opts.SearchLimit),
	}
	for _, c := range deps.Overlays {
		if c != nil {
			r.overlays[c.Kind()] = c
		}
	}
	if deps.Images != nil {
		r.images = render.NewImageCache(deps.Images, nil, deps.Log, deps.Metrics)
	}
	return r
}

// Dataset returns the rendered dataset.
func (r *Renderer) Dataset() *universe.Dataset { return r.data }

// Search runs a query against the search index.
func (r *Renderer) Search(q string) []search.Result { return r.index.Query(q) }

// MapRequest describes a map image.
type MapRequest struct {
	Width  int
	Height int
	Zoom   float64      // zero uses the default zoom
	Mode   cluster.Mode // coloring mode
	Focus  int64        // entity to center on, zero for the whole map
}

// MapScene is a laid-out map view with its camera.
type MapScene struct {
	View    *render.MapView
	Camera  camera.Camera
	Size    geometry.Size
	Overlay overlay.Snapshot

	r *Renderer
}

func checkSize(w, h int) error {
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrBadSize, w, h)
	}
	return nil
}

// MapScene lays out the map for req. Overlay modes fetch through the shared
// caches; a failed fetch yields neutral colors, not an error.
func (r *Renderer) MapScene(ctx context.Context, req MapRequest) (*MapScene, error) {
	if err := checkSize(req.Width, req.Height); err != nil {
		return nil, err
	}
	size := geometry.Size{Width: float64(req.Width), Height: float64(req.Height)}

	view := render.NewMapView(r.data, r.opts.Map)
	view.Layout(size)
	view.SetMode(req.Mode)

	scene := &MapScene{View: view, Size: size, r: r}
	if kind, ok := overlay.KindFor(req.Mode); ok {
		scene.Overlay = overlay.Snapshot{Kind: kind}
		if c := r.overlays[kind]; c != nil {
			scene.Overlay = c.Get(ctx)
		}
		view.SetOverlay(scene.Overlay.Owners)
	}

	zoom := req.Zoom
	if zoom == 0 {
		zoom = r.opts.DefaultZoom
	}
	target := view.Center()
	if req.Focus != 0 {
		i := r.data.Index(req.Focus)
		if i < 0 {
			return nil, fmt.Errorf("focus %d: %w", req.Focus, universe.ErrSystemNotFound)
		}
		target = view.Position(i)
	}
	scene.Camera = camera.CenterOn(target, camera.ClampZoom(zoom), size)
	return scene, nil
}

// Render draws the scene as PNG to w.
func (s *MapScene) Render(w io.Writer) error {
	surface := raster.New(int(s.Size.Width), int(s.Size.Height))
	start := time.Now()
	s.View.Draw(surface, s.Camera)
	s.r.metrics.ObserveFrame("map", time.Since(start))
	return surface.WritePNG(w)
}

// Pick is the entity under a screen position.
type Pick struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Region   string  `json:"region"`
	Security float64 `json:"security"`
	Distance float64 `json:"distance"`
}

// Pick runs the click query at a screen position. The distance is in
// pre-camera units.
func (s *MapScene) Pick(screen geometry.Point2D) (Pick, bool) {
	world := s.Camera.ToWorld(screen, s.Size)
	hit, ok := s.View.Click(world, s.Camera.Zoom)
	if !ok {
		return Pick{}, false
	}
	e := s.r.data.Entities[hit.Index]
	return Pick{
		ID:       e.ID,
		Name:     e.Name,
		Region:   s.r.data.RegionName(e.RegionID),
		Security: e.Security,
		Distance: hit.Distance,
	}, true
}

// SystemRequest describes a local system image.
type SystemRequest struct {
	Width  int
	Height int
	Zoom   float64
	ID     int64
}

// SystemScene is a laid-out local view with its camera.
type SystemScene struct {
	View   *render.SystemView
	Camera camera.Camera
	Size   geometry.Size

	r *Renderer
}

// SystemScene lays out the local view of req.ID. An unknown identity returns
// a not-found scene together with an error wrapping
// universe.ErrSystemNotFound; the scene still renders.
func (r *Renderer) SystemScene(req SystemRequest) (*SystemScene, error) {
	if err := checkSize(req.Width, req.Height); err != nil {
		return nil, err
	}
	size := geometry.Size{Width: float64(req.Width), Height: float64(req.Height)}
	zoom := req.Zoom
	if zoom == 0 {
		zoom = r.opts.DefaultZoom
	}

	sys, err := r.data.System(req.ID)
	if err != nil {
		scene := &SystemScene{
			View:   render.NotFound(req.ID, r.opts.System),
			Camera: camera.Camera{Zoom: camera.ClampZoom(zoom)},
			Size:   size,
			r:      r,
		}
		return scene, fmt.Errorf("system %d: %w", req.ID, err)
	}

	view := render.NewSystemView(sys, r.opts.System, r.images)
	view.OnRelax(func(st layout.Stats) {
		r.metrics.ObserveRelax(st.Iterations)
		if !st.Converged {
			r.log.Debug().Int64("system", req.ID).Int("collisions", st.Collisions).Msg("layout left residual overlap")
		}
	})
	view.Layout(size)
	return &SystemScene{
		View:   view,
		Camera: camera.CenterOn(view.Center(), camera.ClampZoom(zoom), size),
		Size:   size,
		r:      r,
	}, nil
}

// Render draws the scene as PNG to w.
func (s *SystemScene) Render(w io.Writer) error {
	surface := raster.New(int(s.Size.Width), int(s.Size.Height))
	start := time.Now()
	s.View.Draw(surface, s.Camera)
	view := "system"
	if !s.View.Found() {
		view = "not_found"
	}
	s.r.metrics.ObserveFrame(view, time.Since(start))
	return surface.WritePNG(w)
}
