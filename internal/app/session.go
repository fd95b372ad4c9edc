package app

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"starmap/internal/camera"
	"starmap/internal/cluster"
	"starmap/internal/layout"
	"starmap/internal/metrics"
	"starmap/internal/overlay"
	"starmap/internal/render"
	"starmap/internal/search"
	"starmap/internal/universe"
	"starmap/pkg/geometry"
)

// dragThresholdPx is how far the pointer may travel between down and up for
// the gesture to still count as a click.
const dragThresholdPx = 3

// State is the view the session is showing.
type State int

const (
	StateMap State = iota
	StateSystem
	StateNotFound
)

func (s State) String() string {
	switch s {
	case StateSystem:
		return "system"
	case StateNotFound:
		return "not_found"
	}
	return "map"
}

// Navigator switches between the map and local system views.
type Navigator interface {
	OpenSystem(id int64)
	CloseSystem()
}

// Options configure a Session.
type Options struct {
	Map         render.MapParams
	System      render.SystemParams
	DefaultZoom float64
	Mode        cluster.Mode
	SearchLimit int
	SearchDelay time.Duration
	SystemZoom  float64 // zoom after selecting a system search result
	RegionZoom  float64 // zoom after selecting a region search result
}

// DefaultOptions returns the stock session settings.
func DefaultOptions() Options {
	return Options{
		Map:         render.DefaultMapParams(),
		System:      render.DefaultSystemParams(),
		DefaultZoom: 1,
		Mode:        cluster.ModeSecurity,
		SearchLimit: search.DefaultLimit,
		SearchDelay: search.DefaultDelay,
		SystemZoom:  4,
		RegionZoom:  2,
	}
}

// Deps are the collaborators of a Session. All fields are optional.
type Deps struct {
	Log      zerolog.Logger
	Metrics  *metrics.Metrics
	Images   render.ImageLoader
	Overlays []*overlay.Cache
	// Navigator receives qualifying clicks. Nil navigates within the session.
	Navigator Navigator
	// Wake is called from any goroutine when the session has work for the
	// next tick.
	Wake func()
}

// Selection describes a click that hit something.
type Selection struct {
	State State
	ID    int64
}

// Session is the interactive state of one map window. Every method must be
// called from the render thread; asynchronous results arrive through the
// scheduler and are applied during Tick.
type Session struct {
	events

	data    *universe.Dataset
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics
	nav     Navigator

	sched    *render.Scheduler
	images   *render.ImageCache
	overlays *overlay.Tracker
	index    *search.Index
	debounce *search.Debouncer
	results  []search.Result

	state   State
	size    geometry.Size
	mapView *render.MapView
	mapCam  *camera.Controller
	mapInit bool
	sysView *render.SystemView
	sysCam  *camera.Controller
	sysInit bool

	pressed bool
	pressAt geometry.Point2D
	moved   bool
}

// NewSession creates a session over data showing the map view.
func NewSession(data *universe.Dataset, opts Options, deps Deps) *Session {
	s := &Session{
		data:    data,
		opts:    opts,
		log:     deps.Log,
		metrics: deps.Metrics,
		sched:   render.NewScheduler(deps.Wake),
		mapView: render.NewMapView(data, opts.Map),
		mapCam:  camera.NewController(opts.DefaultZoom),
		index:   search.NewIndex(data, opts.SearchLimit),
	}
	s.nav = deps.Navigator
	if s.nav == nil {
		s.nav = s
	}
	if deps.Images != nil {
		s.images = render.NewImageCache(deps.Images, s.sched, deps.Log, deps.Metrics)
	}
	s.overlays = overlay.NewTracker(s.sched, deps.Overlays...)
	s.debounce = search.NewDebouncer(opts.SearchDelay, s.sched)
	s.SetMode(opts.Mode)
	return s
}

// Scheduler returns the redraw gate of the session.
func (s *Session) Scheduler() *render.Scheduler { return s.sched }

// State returns the active view.
func (s *Session) State() State { return s.state }

// MapView returns the map view.
func (s *Session) MapView() *render.MapView { return s.mapView }

// SystemView returns the open local view, nil on the map.
func (s *Session) SystemView() *render.SystemView { return s.sysView }

// Camera returns the camera of the active view.
func (s *Session) Camera() camera.Camera { return s.controller().Camera() }

// SearchResults returns the results of the last completed search.
func (s *Session) SearchResults() []search.Result { return s.results }

// Logger returns the session logger for UI code.
func (s *Session) Logger() zerolog.Logger { return s.log }

func (s *Session) controller() *camera.Controller {
	if s.state != StateMap && s.sysCam != nil {
		return s.sysCam
	}
	return s.mapCam
}

// Resize lays the views out for a new surface size. The camera of a view is
// centered the first time the view is laid out.
func (s *Session) Resize(size geometry.Size) {
	if size == s.size || size.Width <= 0 || size.Height <= 0 {
		return
	}
	s.size = size
	s.layout()
	s.sched.Invalidate()
}

func (s *Session) layout() {
	s.mapCam.Resize(s.size)
	if s.mapView.Layout(s.size) && !s.mapInit {
		s.mapCam.Reset(s.mapView.Center(), s.size)
		s.mapInit = true
	}
	if s.sysView == nil {
		return
	}
	s.sysCam.Resize(s.size)
	s.sysView.Layout(s.size)
	if !s.sysInit {
		s.sysCam.Reset(s.sysView.Center(), s.size)
		s.sysInit = true
	}
}

// OpenSystem switches to the local view of id. Unknown identities show the
// not-found state.
func (s *Session) OpenSystem(id int64) {
	s.clearPointer()
	s.sysCam = camera.NewController(s.opts.DefaultZoom)
	s.sysInit = false

	sys, err := s.data.System(id)
	switch {
	case err == nil:
		s.sysView = render.NewSystemView(sys, s.opts.System, s.images)
		s.sysView.OnRelax(s.observeRelax)
		s.state = StateSystem
		s.log.Info().Int64("system", id).Str("name", sys.Name).Msg("opened system view")
	case errors.Is(err, universe.ErrSystemNotFound):
		s.sysView = render.NotFound(id, s.opts.System)
		s.state = StateNotFound
		s.log.Info().Int64("system", id).Msg("system not found")
	default:
		s.log.Error().Err(err).Int64("system", id).Msg("open system view")
		return
	}

	if s.size.Width > 0 {
		s.layout()
	}
	s.sched.Invalidate()
	s.Emit(EventViewChanged, s.state)
}

// CloseSystem returns to the map.
func (s *Session) CloseSystem() {
	if s.state == StateMap {
		return
	}
	s.clearPointer()
	s.sysView = nil
	s.sysCam = nil
	s.state = StateMap
	s.log.Info().Msg("returned to map")
	s.sched.Invalidate()
	s.Emit(EventViewChanged, s.state)
}

func (s *Session) observeRelax(st layout.Stats) {
	s.metrics.ObserveRelax(st.Iterations)
	if !st.Converged {
		s.log.Debug().Int("collisions", st.Collisions).Msg("layout left residual overlap")
	}
}

func (s *Session) toWorld(p geometry.Point2D) (geometry.Point2D, float64) {
	cam := s.controller().Camera()
	return cam.ToWorld(p, s.size), cam.Zoom
}

// PointerMove handles pointer motion in surface pixels: it pans while the
// button is held and updates the hover indicator otherwise.
func (s *Session) PointerMove(p geometry.Point2D) {
	if s.pressed {
		if p.Distance(s.pressAt) > dragThresholdPx {
			s.moved = true
		}
		s.controller().DragTo(p)
		return
	}
	s.hover(p)
}

func (s *Session) hover(p geometry.Point2D) {
	world, zoom := s.toWorld(p)
	changed := false
	var hovered int64

	switch s.state {
	case StateMap:
		idx := -1
		if hit, ok := s.mapView.Hover(world, zoom); ok {
			idx = hit.Index
			hovered = hit.ID
		}
		changed = s.mapView.SetHover(idx)
	case StateSystem:
		if hit, ok := s.sysView.Hover(world, zoom); ok {
			hovered = hit.ID
		}
		changed = s.sysView.SetHover(hovered)
	}

	if changed {
		s.sched.Invalidate()
		s.Emit(EventHoverChanged, hovered)
	}
}

// PointerDown starts a press that becomes either a click or a drag.
func (s *Session) PointerDown(p geometry.Point2D) {
	s.pressed = true
	s.moved = false
	s.pressAt = p
	s.controller().BeginDrag(p)
}

// PointerUp ends a press. A press that did not travel is a click.
func (s *Session) PointerUp(p geometry.Point2D) {
	if !s.pressed {
		return
	}
	s.pressed = false
	s.controller().EndDrag()
	if !s.moved {
		s.click(s.pressAt)
	}
}

// PointerLeave clears hover and abandons any press.
func (s *Session) PointerLeave() {
	s.clearPointer()
	changed := false
	switch s.state {
	case StateMap:
		changed = s.mapView.SetHover(-1)
	case StateSystem:
		changed = s.sysView.SetHover(0)
	}
	if changed {
		s.sched.Invalidate()
		s.Emit(EventHoverChanged, int64(0))
	}
}

func (s *Session) clearPointer() {
	s.pressed = false
	s.moved = false
	s.controller().EndDrag()
}

// Scroll records a zoom step at the cursor; positive delta zooms in.
func (s *Session) Scroll(p geometry.Point2D, delta float64) {
	s.controller().Zoom(p, delta)
	s.sched.Invalidate()
}

// ZoomIn zooms in one step about the surface center.
func (s *Session) ZoomIn() {
	s.controller().ZoomIn()
	s.sched.Invalidate()
}

// ZoomOut zooms out one step about the surface center.
func (s *Session) ZoomOut() {
	s.controller().ZoomOut()
	s.sched.Invalidate()
}

// ResetView re-centers the active view at the default zoom.
func (s *Session) ResetView() {
	center := s.mapView.Center()
	if s.state != StateMap {
		center = s.sysView.Center()
	}
	s.controller().Reset(center, s.size)
	s.sched.Invalidate()
}

func (s *Session) click(p geometry.Point2D) {
	world, zoom := s.toWorld(p)

	switch s.state {
	case StateMap:
		hit, ok := s.mapView.Click(world, zoom)
		if !ok {
			return
		}
		s.Emit(EventSelected, Selection{State: StateMap, ID: hit.ID})
		s.nav.OpenSystem(hit.ID)
	case StateSystem:
		hit, ok := s.sysView.Click(world, zoom)
		if !ok {
			return
		}
		s.Emit(EventSelected, Selection{State: StateSystem, ID: hit.ID})
		if body, ok := s.sysView.Body(hit.ID); ok && body.Kind == universe.BodyGate && body.DestinationID != 0 {
			s.nav.OpenSystem(body.DestinationID)
		}
	}
}

// Mode returns the active coloring mode.
func (s *Session) Mode() cluster.Mode { return s.mapView.Mode() }

// SetMode switches the coloring mode. Overlay modes start with no ownership
// and fill in when the fetch completes; a response for a mode that is no
// longer active is dropped.
func (s *Session) SetMode(m cluster.Mode) {
	changed := s.mapView.SetMode(m)
	if kind, ok := overlay.KindFor(m); ok {
		s.mapView.SetOverlay(nil)
		s.overlays.Request(kind, func(snap overlay.Snapshot) {
			s.mapView.SetOverlay(snap.Owners)
			s.sched.Invalidate()
			s.Emit(EventOverlayApplied, snap)
		})
		changed = true
	} else {
		s.overlays.Cancel()
		s.mapView.SetOverlay(nil)
	}
	if changed {
		s.sched.Invalidate()
		s.Emit(EventModeChanged, m)
	}
}

// Search runs a debounced query; results arrive on a later Tick as an
// EventSearchResults event.
func (s *Session) Search(text string) {
	s.debounce.Call(func() {
		s.results = s.index.Query(text)
		s.Emit(EventSearchResults, s.results)
	})
}

// SelectResult returns to the map and centers the camera on r: a system at
// the system zoom, a region on the centroid of its members at the region
// zoom.
func (s *Session) SelectResult(r search.Result) bool {
	if s.size.Width <= 0 || s.size.Height <= 0 {
		return false
	}
	var target geometry.Point2D
	zoom := s.opts.SystemZoom

	switch r.Kind {
	case search.KindSystem:
		i := s.data.Index(r.ID)
		if i < 0 {
			return false
		}
		target = s.mapView.Position(i)
	case search.KindRegion:
		members := s.data.RegionMembers(r.ID)
		if len(members) == 0 {
			return false
		}
		for _, i := range members {
			target = target.Add(s.mapView.Position(i))
		}
		target = target.Scale(1 / float64(len(members)))
		zoom = s.opts.RegionZoom
	default:
		return false
	}

	s.CloseSystem()
	s.mapCam.Set(camera.CenterOn(target, zoom, s.size))
	s.sched.Invalidate()
	return true
}

// Tick runs once per display refresh: it applies queued asynchronous results,
// folds pending input into the camera and reports whether a redraw is due.
func (s *Session) Tick() bool {
	s.sched.Drain()
	changed, coalesced := s.controller().Apply()
	if coalesced > 0 {
		s.metrics.AddCoalesced(coalesced)
	}
	if changed {
		s.sched.Invalidate()
	}
	return s.sched.TakeRedraw()
}

// Draw renders the active view onto surface.
func (s *Session) Draw(surface render.Surface) {
	s.Resize(surface.Size())
	start := time.Now()
	cam := s.controller().Camera()
	if s.state == StateMap {
		s.mapView.Draw(surface, cam)
	} else {
		s.sysView.Draw(surface, cam)
	}
	s.metrics.ObserveFrame(s.state.String(), time.Since(start))
}
