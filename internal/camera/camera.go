// Package camera implements the pan/zoom viewport shared by the map and local
// system views.
package camera

import (
	"math"

	"starmap/pkg/geometry"
)

const (
	MinZoom = 0.1
	MaxZoom = 10.0

	// zoomStep is the delta used by the toolbar zoom buttons.
	zoomStep = 0.25
)

// Camera is the viewport state: a pan offset and a zoom factor applied about
// the surface center. Zoom is always within [MinZoom, MaxZoom].
type Camera struct {
	OffsetX float64
	OffsetY float64
	Zoom    float64
}

// ClampZoom limits z to the valid zoom range. NaN maps to MinZoom.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinZoom
	}
	return geometry.Clamp(z, MinZoom, MaxZoom)
}

// Transform returns the forward transform from pre-camera pixel space to
// screen space: translate to center+offset, scale by zoom, translate back.
func (c Camera) Transform(size geometry.Size) geometry.AffineTransform {
	center := size.Center()
	return geometry.Translation(center.X+c.OffsetX, center.Y+c.OffsetY).
		Compose(geometry.Scale(c.Zoom, c.Zoom)).
		Compose(geometry.Translation(-center.X, -center.Y))
}

// ToScreen maps a pre-camera pixel position to screen space.
func (c Camera) ToScreen(p geometry.Point2D, size geometry.Size) geometry.Point2D {
	center := size.Center()
	return geometry.Point2D{
		X: (p.X-center.X)*c.Zoom + center.X + c.OffsetX,
		Y: (p.Y-center.Y)*c.Zoom + center.Y + c.OffsetY,
	}
}

// ToWorld maps a screen position back to pre-camera pixel space. It is the
// exact algebraic inverse of ToScreen.
func (c Camera) ToWorld(s geometry.Point2D, size geometry.Size) geometry.Point2D {
	center := size.Center()
	return geometry.Point2D{
		X: (s.X-center.X-c.OffsetX)/c.Zoom + center.X,
		Y: (s.Y-center.Y-c.OffsetY)/c.Zoom + center.Y,
	}
}

// ZoomAt returns the camera after zooming by delta (positive zooms in) while
// keeping the world point under cursor fixed on screen.
func (c Camera) ZoomAt(cursor geometry.Point2D, delta float64, size geometry.Size) Camera {
	return c.ZoomTo(cursor, c.Zoom*(1+delta), size)
}

// ZoomTo returns the camera at the given zoom (clamped) with the world point
// under cursor kept fixed on screen.
func (c Camera) ZoomTo(cursor geometry.Point2D, zoom float64, size geometry.Size) Camera {
	world := c.ToWorld(cursor, size)
	newZoom := ClampZoom(zoom)
	center := size.Center()
	return Camera{
		OffsetX: cursor.X - center.X - (world.X-center.X)*newZoom,
		OffsetY: cursor.Y - center.Y - (world.Y-center.Y)*newZoom,
		Zoom:    newZoom,
	}
}

// CenterOn returns a camera that places target (pre-camera pixel space) at the
// surface center with the given zoom.
func CenterOn(target geometry.Point2D, zoom float64, size geometry.Size) Camera {
	zoom = ClampZoom(zoom)
	center := size.Center()
	return Camera{
		OffsetX: -(target.X - center.X) * zoom,
		OffsetY: -(target.Y - center.Y) * zoom,
		Zoom:    zoom,
	}
}
