// Package projection fits domain-space positions into a drawing surface.
package projection

import (
	"math"

	"starmap/pkg/geometry"
)

// Projector maps domain positions into pre-camera pixel space using a single
// uniform scale derived from the bounding box of the entity set. It is
// immutable; build a new one when the entity set or surface size changes.
type Projector struct {
	bounds  geometry.Rect
	size    geometry.Size
	padding float64
	scale   float64
}

// New computes the bounding box of points and the uniform fit scale for a
// surface of the given size. A zero-size bounding box (a single entity, or no
// entities) uses scale 1.
func New(points []geometry.Point2D, size geometry.Size, padding float64) Projector {
	bounds := geometry.BoundingBox(points)
	return Projector{
		bounds:  bounds,
		size:    size,
		padding: padding,
		scale:   fitScale(bounds, size, padding),
	}
}

func fitScale(bounds geometry.Rect, size geometry.Size, padding float64) float64 {
	scale := math.Inf(1)
	if bounds.Width > 0 {
		scale = (size.Width - 2*padding) / bounds.Width
	}
	if bounds.Height > 0 {
		scale = math.Min(scale, (size.Height-2*padding)/bounds.Height)
	}
	if math.IsInf(scale, 0) || math.IsNaN(scale) || scale <= 0 {
		return 1
	}
	return scale
}

// Scale returns the uniform fit scale.
func (p Projector) Scale() float64 { return p.scale }

// Size returns the surface size the projector was built for.
func (p Projector) Size() geometry.Size { return p.size }

// DomainBounds returns the bounding box of the input positions.
func (p Projector) DomainBounds() geometry.Rect { return p.bounds }

// Project maps a domain position to pre-camera pixel space. The vertical axis
// is flipped so larger domain Y renders toward the top of the surface.
func (p Projector) Project(pt geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: (pt.X-p.bounds.X)*p.scale + p.padding,
		Y: p.size.Height - ((pt.Y-p.bounds.Y)*p.scale + p.padding),
	}
}

// Unproject is the exact inverse of Project.
func (p Projector) Unproject(px geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: (px.X-p.padding)/p.scale + p.bounds.X,
		Y: (p.size.Height-px.Y-p.padding)/p.scale + p.bounds.Y,
	}
}

// ProjectAll writes the projection of every point into dst, growing it only
// when its capacity is insufficient, and returns the filled slice.
func (p Projector) ProjectAll(dst []geometry.Point2D, points []geometry.Point2D) []geometry.Point2D {
	if cap(dst) < len(points) {
		dst = make([]geometry.Point2D, len(points))
	}
	dst = dst[:len(points)]
	for i, pt := range points {
		dst[i] = p.Project(pt)
	}
	return dst
}

// Bounds returns the projected bounding box in pre-camera pixel space.
func (p Projector) Bounds() geometry.Rect {
	minCorner := p.Project(geometry.Pt(p.bounds.X, p.bounds.Y+p.bounds.Height))
	return geometry.Rect{
		X:      minCorner.X,
		Y:      minCorner.Y,
		Width:  p.bounds.Width * p.scale,
		Height: p.bounds.Height * p.scale,
	}
}

// Center returns the midpoint of the projected bounding box.
func (p Projector) Center() geometry.Point2D {
	return p.Bounds().Center()
}
