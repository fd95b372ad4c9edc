package render

import (
	"fmt"
	"image/color"

	"starmap/internal/camera"
	"starmap/internal/layout"
	"starmap/internal/projection"
	"starmap/internal/spatial"
	"starmap/internal/universe"
	"starmap/pkg/colorutil"
	"starmap/pkg/geometry"
)

// SystemParams are the tunables of the local system view.
type SystemParams struct {
	Padding       float64
	MinSeparation float64
	Iterations    int
	Hit           spatial.Engine
	Background    color.RGBA
}

// DefaultSystemParams returns the stock system view settings.
func DefaultSystemParams() SystemParams {
	return SystemParams{
		Padding:       50,
		MinSeparation: 24,
		Iterations:    layout.DefaultIterations,
		Hit:           spatial.Engine{HoverBufferPx: 4, ClickBufferPx: 8},
		Background:    colorutil.Background,
	}
}

type bodyStyle struct {
	radius float64 // screen pixels
	shape  Shape
	color  color.RGBA
}

var bodyStyles = map[universe.BodyKind]bodyStyle{
	universe.BodyStar:    {radius: 14, shape: ShapeCircle, color: color.RGBA{R: 255, G: 200, B: 80, A: 255}},
	universe.BodyPlanet:  {radius: 7, shape: ShapeCircle, color: color.RGBA{R: 90, G: 150, B: 220, A: 255}},
	universe.BodyMoon:    {radius: 4, shape: ShapeCircle, color: color.RGBA{R: 170, G: 170, B: 180, A: 255}},
	universe.BodyBelt:    {radius: 6, shape: ShapeRing, color: color.RGBA{R: 160, G: 130, B: 100, A: 255}},
	universe.BodyStation: {radius: 6, shape: ShapeDiamond, color: color.RGBA{R: 120, G: 220, B: 160, A: 255}},
	universe.BodyGate:    {radius: 6, shape: ShapeTriangle, color: color.RGBA{R: 230, G: 120, B: 60, A: 255}},
}

var orbitColor = color.RGBA{R: 40, G: 46, B: 60, A: 255}

// SystemView draws one local system. Every frame projects the bodies, runs
// the collision relaxation and stores the result in a position cache that
// both drawing and hit testing read. A view built with NotFound draws only a
// message.
type SystemView struct {
	sys     *universe.LocalSystem
	missing int64
	params  SystemParams
	images  *ImageCache
	onRelax func(layout.Stats)

	bodies  []universe.Body
	byID    map[int64]int
	domain  []geometry.Point2D
	proj    projection.Projector
	size    geometry.Size
	laidOut bool

	projected []geometry.Point2D
	markers   []layout.Marker
	relaxer   layout.Relaxer
	cache     *layout.PositionCache
	stats     layout.Stats
	hover     int
	paint     painter
}

// NewSystemView prepares a view of sys. Icons are looked up in images, which
// may be nil.
func NewSystemView(sys *universe.LocalSystem, params SystemParams, images *ImageCache) *SystemView {
	v := &SystemView{
		sys:    sys,
		params: params,
		images: images,
		bodies: sys.All(),
		byID:   make(map[int64]int),
		cache:  layout.NewPositionCache(),
		hover:  -1,
	}
	v.domain = make([]geometry.Point2D, len(v.bodies))
	for i, b := range v.bodies {
		v.domain[i] = b.Position
		v.byID[b.ID] = i
	}
	return v
}

// NotFound returns a view that reports an unknown system identity.
func NotFound(id int64, params SystemParams) *SystemView {
	return &SystemView{missing: id, params: params, cache: layout.NewPositionCache(), hover: -1}
}

// OnRelax registers a callback receiving the stats of every relaxation pass.
func (v *SystemView) OnRelax(fn func(layout.Stats)) { v.onRelax = fn }

// Found reports whether the view has a system to show.
func (v *SystemView) Found() bool { return v.sys != nil }

// System returns the shown system, nil when not found.
func (v *SystemView) System() *universe.LocalSystem { return v.sys }

// Layout projects the bodies for size and rebuilds the position cache. It
// reports whether the projection changed.
func (v *SystemView) Layout(size geometry.Size) bool {
	if !v.Found() {
		return false
	}
	changed := !v.laidOut || size != v.size
	if changed {
		v.proj = projection.New(v.domain, size, v.params.Padding)
		v.projected = v.proj.ProjectAll(v.projected, v.domain)
		v.size = size
		v.laidOut = true
	}
	v.relax()
	return changed
}

// relax rebuilds the adjusted positions from the projected ones.
func (v *SystemView) relax() {
	v.markers = v.markers[:0]
	for i, b := range v.bodies {
		v.markers = append(v.markers, layout.Marker{ID: b.ID, Pos: v.projected[i], Radius: styleOf(b.Kind).radius})
	}
	v.stats = v.relaxer.Relax(v.markers, v.params.MinSeparation, v.params.Iterations)
	v.cache.Fill(v.markers)
	if v.onRelax != nil {
		v.onRelax(v.stats)
	}
}

// Center returns the midpoint of the projected bounding box.
func (v *SystemView) Center() geometry.Point2D {
	if !v.Found() {
		return v.size.Center()
	}
	return v.proj.Center()
}

// Positions returns the adjusted position cache of the last layout.
func (v *SystemView) Positions() *layout.PositionCache { return v.cache }

// Stats returns the result of the last relaxation pass.
func (v *SystemView) Stats() layout.Stats { return v.stats }

// Body returns the body with identity id.
func (v *SystemView) Body(id int64) (universe.Body, bool) {
	i, ok := v.byID[id]
	if !ok {
		return universe.Body{}, false
	}
	return v.bodies[i], true
}

// SetHover marks the body with identity id as hovered; 0 clears it. It
// reports whether the hovered body changed.
func (v *SystemView) SetHover(id int64) bool {
	i := -1
	if idx, ok := v.byID[id]; ok && id != 0 {
		i = idx
	}
	if i == v.hover {
		return false
	}
	v.hover = i
	return true
}

// Hover runs the hover query against the cached placements.
func (v *SystemView) Hover(world geometry.Point2D, zoom float64) (spatial.Hit, bool) {
	return v.params.Hit.Hover(v.cache, world, zoom)
}

// Click runs the click query against the cached placements.
func (v *SystemView) Click(world geometry.Point2D, zoom float64) (spatial.Hit, bool) {
	return v.params.Hit.Click(v.cache, world, zoom)
}

func styleOf(k universe.BodyKind) bodyStyle {
	if s, ok := bodyStyles[k]; ok {
		return s
	}
	return bodyStyle{radius: 5, shape: ShapeCircle, color: colorutil.Neutral}
}

// Draw renders one frame of the system view.
func (v *SystemView) Draw(s Surface, cam camera.Camera) {
	size := s.Size()
	s.FillRect(geometry.Rect{Width: size.Width, Height: size.Height}, v.params.Background)
	if !v.Found() {
		s.DrawText(fmt.Sprintf("System %d not found", v.missing), size.Center(),
			TextStyle{Size: 18, Color: colorutil.White, Align: AlignCenter})
		return
	}
	v.Layout(size)

	s.Save()
	defer s.Restore()
	applyCamera(s, cam)
	zoom := cam.Zoom
	line := 1 / zoom

	// Orbits use unadjusted positions so they stay concentric.
	star := v.projected[0]
	for i := 1; i < len(v.bodies); i++ {
		if v.bodies[i].Kind == universe.BodyPlanet {
			s.StrokeCircle(star, star.Distance(v.projected[i]), orbitColor, line)
		}
	}

	for i, b := range v.bodies {
		p, _ := v.cache.Get(b.ID)
		st := styleOf(b.Kind)
		r := p.Radius / zoom
		if img, ok := v.images.Get(b.ImageID); ok {
			s.DrawImage(img, geometry.Rect{X: p.Pos.X - r, Y: p.Pos.Y - r, Width: 2 * r, Height: 2 * r}, true)
		} else {
			v.paint.marker(s, st.shape, p.Pos, r, st.color, 2*line)
		}
		if b.Kind != universe.BodyMoon && b.Name != "" {
			s.DrawText(b.Name, geometry.Pt(p.Pos.X, p.Pos.Y+r+8*line),
				TextStyle{Size: 11 * line, Color: colorutil.WithAlpha(colorutil.White, 0.8), Align: AlignCenter})
		}
		if i == v.hover {
			hoverRing(s, p.Pos, r, zoom, "")
		}
	}
}
