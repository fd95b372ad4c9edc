package render

import (
	"fmt"
	"image/color"

	"starmap/internal/camera"
	"starmap/internal/cluster"
	"starmap/internal/projection"
	"starmap/internal/spatial"
	"starmap/internal/universe"
	"starmap/pkg/colorutil"
	"starmap/pkg/geometry"
)

// MapParams are the tunables of the map view. Pixel values are screen pixels.
type MapParams struct {
	Padding     float64
	MarkerPx    float64
	EdgePx      float64
	Hit         spatial.Engine
	Label       cluster.StyleParams
	ProximityPx float64
	Background  color.RGBA
}

// DefaultMapParams returns the stock map view settings.
func DefaultMapParams() MapParams {
	return MapParams{
		Padding:     50,
		MarkerPx:    3,
		EdgePx:      1,
		Hit:         spatial.Engine{HoverBufferPx: 10, ClickBufferPx: 15},
		Label:       cluster.StyleParams{BasePx: 14, FadeStart: 5, FadeFloor: 0.2},
		ProximityPx: 150,
		Background:  colorutil.Background,
	}
}

// MapView draws the full entity graph. The projection is rebuilt only when
// the surface size changes; anchors are rebuilt every frame.
type MapView struct {
	data   *universe.Dataset
	params MapParams

	proj      projection.Projector
	projSize  geometry.Size
	projected bool
	domain    []geometry.Point2D
	positions []geometry.Point2D
	ids       []int64
	edges     [][2]int

	mode    cluster.Mode
	overlay map[int64]int64
	hover   int
	agg     *cluster.Aggregator
	anchors []cluster.Anchor
	paint   painter
}

// NewMapView prepares a map view over data.
func NewMapView(data *universe.Dataset, params MapParams) *MapView {
	v := &MapView{
		data:   data,
		params: params,
		hover:  -1,
		agg:    cluster.NewAggregator(params.ProximityPx),
	}
	v.domain = make([]geometry.Point2D, len(data.Entities))
	v.ids = make([]int64, len(data.Entities))
	for i, e := range data.Entities {
		v.domain[i] = e.Position
		v.ids[i] = e.ID
	}
	v.edges = make([][2]int, 0, len(data.Edges))
	for _, e := range data.Edges {
		v.edges = append(v.edges, [2]int{data.Index(e.A), data.Index(e.B)})
	}
	return v
}

// Dataset returns the entity set the view draws.
func (v *MapView) Dataset() *universe.Dataset { return v.data }

// Layout projects the entity set for size. It reports whether the projection
// changed, in which case the caller re-centers its camera.
func (v *MapView) Layout(size geometry.Size) bool {
	if v.projected && size == v.projSize {
		return false
	}
	v.proj = projection.New(v.domain, size, v.params.Padding)
	v.positions = v.proj.ProjectAll(v.positions, v.domain)
	v.projSize = size
	v.projected = true
	return true
}

// Projector returns the current projection.
func (v *MapView) Projector() projection.Projector { return v.proj }

// Center returns the midpoint of the projected bounding box.
func (v *MapView) Center() geometry.Point2D { return v.proj.Center() }

// Position returns the projected position of the entity at index i.
func (v *MapView) Position(i int) geometry.Point2D { return v.positions[i] }

// Mode returns the active coloring mode.
func (v *MapView) Mode() cluster.Mode { return v.mode }

// SetMode switches the coloring mode and reports whether it changed.
func (v *MapView) SetMode(m cluster.Mode) bool {
	if m == v.mode {
		return false
	}
	v.mode = m
	return true
}

// SetOverlay replaces the ownership overlay used by the overlay modes. A nil
// map means no overlay data.
func (v *MapView) SetOverlay(overlay map[int64]int64) {
	v.overlay = overlay
}

// SetHover marks the entity at index i as hovered; -1 clears it. It reports
// whether the hovered entity changed.
func (v *MapView) SetHover(i int) bool {
	if i == v.hover {
		return false
	}
	v.hover = i
	return true
}

// Hovered returns the index of the hovered entity, or -1.
func (v *MapView) Hovered() int { return v.hover }

func (v *MapView) candidates() spatial.PointSet {
	return spatial.PointSet{IDs: v.ids, Positions: v.positions}
}

// Hover runs the hover query at a pre-camera position.
func (v *MapView) Hover(world geometry.Point2D, zoom float64) (spatial.Hit, bool) {
	return v.params.Hit.Hover(v.candidates(), world, zoom)
}

// Click runs the click query at a pre-camera position.
func (v *MapView) Click(world geometry.Point2D, zoom float64) (spatial.Hit, bool) {
	return v.params.Hit.Click(v.candidates(), world, zoom)
}

// Anchors returns the anchors built by the last Draw. The slice is reused by
// the next frame.
func (v *MapView) Anchors() []cluster.Anchor { return v.anchors }

// Color returns the marker color of e under the active mode.
func (v *MapView) Color(e universe.Entity) color.RGBA {
	switch v.mode {
	case cluster.ModeRegion:
		return colorutil.Category(e.RegionID)
	case cluster.ModeFaction, cluster.ModeAlliance:
		if owner, ok := v.overlay[e.ID]; ok && owner != 0 {
			return colorutil.Category(owner)
		}
		return colorutil.Neutral
	default:
		return colorutil.Security(e.Security)
	}
}

// BandShape maps a security band to its marker shape.
func BandShape(b universe.SecurityBand) Shape {
	switch b {
	case universe.BandLow:
		return ShapeDiamond
	case universe.BandNull:
		return ShapeTriangle
	default:
		return ShapeCircle
	}
}

// anchorLabel names an anchor group. Owners missing from the dataset are
// shown by id.
func (v *MapView) anchorLabel(id int64) string {
	var (
		name string
		ok   bool
	)
	switch v.mode {
	case cluster.ModeSecurity, cluster.ModeRegion:
		return v.data.RegionName(id)
	case cluster.ModeAlliance:
		name, ok = v.data.AllianceName(id)
	default:
		name, ok = v.data.FactionName(id)
	}
	if ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

// Draw renders one frame: background, edges, markers, anchors, hover ring.
func (v *MapView) Draw(s Surface, cam camera.Camera) {
	v.Layout(s.Size())
	size := s.Size()
	s.FillRect(geometry.Rect{Width: size.Width, Height: size.Height}, v.params.Background)

	s.Save()
	defer s.Restore()
	applyCamera(s, cam)
	zoom := cam.Zoom

	edgeWidth := v.params.EdgePx / zoom
	for _, e := range v.edges {
		v.paint.line(s, v.positions[e[0]], v.positions[e[1]], colorutil.Edge, edgeWidth)
	}

	r := v.params.MarkerPx / zoom
	for i, e := range v.data.Entities {
		v.paint.marker(s, BandShape(e.Band()), v.positions[i], r, v.Color(e), edgeWidth)
	}

	var overlay map[int64]int64
	if v.mode.UsesOverlay() {
		overlay = v.overlay
	}
	v.anchors = v.agg.Aggregate(v.mode, cluster.Input{
		Entities:  v.data.Entities,
		Positions: v.positions,
		Overlay:   overlay,
		Label:     v.anchorLabel,
	})
	drawAnchors(s, v.anchors, v.params.Label.Style(zoom), zoom)

	if v.hover >= 0 && v.hover < len(v.positions) {
		hoverRing(s, v.positions[v.hover], r, zoom, v.data.Entities[v.hover].Name)
	}
}
