// Package spatial implements nearest-entity lookup for hover and click.
package spatial

import (
	"math"

	"starmap/pkg/geometry"
)

// Candidates is the set of hit-testable markers of a view, in pre-camera
// pixel space. Radius is the drawn marker radius in screen pixels; it is zero
// for point markers.
type Candidates interface {
	Len() int
	At(i int) (id int64, pos geometry.Point2D, radius float64)
}

// Hit is the result of a query.
type Hit struct {
	Index    int
	ID       int64
	Distance float64
}

// HitRadius converts a screen-space tolerance in pixels to pre-camera units
// at the given zoom. It shrinks strictly as zoom grows.
func HitRadius(px, zoom float64) float64 {
	return px / zoom
}

// Nearest returns the candidate closest to world whose distance is strictly
// less than (radius+bufferPx)/zoom. When several candidates sit at the same
// distance, the one earliest in iteration order wins.
func Nearest(c Candidates, world geometry.Point2D, bufferPx, zoom float64) (Hit, bool) {
	best := Hit{Index: -1, Distance: math.Inf(1)}
	n := c.Len()
	for i := 0; i < n; i++ {
		id, pos, radius := c.At(i)
		d := pos.Distance(world)
		if d >= HitRadius(radius+bufferPx, zoom) {
			continue
		}
		if d < best.Distance {
			best = Hit{Index: i, ID: id, Distance: d}
		}
	}
	return best, best.Index >= 0
}

// Engine holds the screen-pixel buffers of the two query variants.
type Engine struct {
	HoverBufferPx float64
	ClickBufferPx float64
}

// Hover is the cheap query run on every pointer move.
func (e Engine) Hover(c Candidates, world geometry.Point2D, zoom float64) (Hit, bool) {
	return Nearest(c, world, e.HoverBufferPx, zoom)
}

// Click is the query whose hit triggers navigation.
func (e Engine) Click(c Candidates, world geometry.Point2D, zoom float64) (Hit, bool) {
	return Nearest(c, world, e.ClickBufferPx, zoom)
}

// PointSet adapts parallel id and position slices with a uniform radius.
type PointSet struct {
	IDs       []int64
	Positions []geometry.Point2D
	Radius    float64
}

// Len implements Candidates.
func (p PointSet) Len() int { return len(p.Positions) }

// At implements Candidates.
func (p PointSet) At(i int) (int64, geometry.Point2D, float64) {
	return p.IDs[i], p.Positions[i], p.Radius
}
