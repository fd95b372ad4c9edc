// Package render composes projection, camera, clustering, layout and hit
// testing into draw calls against an immediate-mode Surface.
package render

import (
	"image"
	"image/color"

	"starmap/internal/camera"
	"starmap/pkg/geometry"
)

// Align is the horizontal anchoring of drawn text.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// TextStyle describes how a string is drawn. The anchor point passed to
// DrawText is the vertical middle of the text line.
type TextStyle struct {
	Size  float64
	Color color.Color
	Align Align
}

// Surface is the 2D drawing boundary. Coordinates are in the surface's own
// pixel space, transformed by the current Translate/Scale stack. Implementations
// must not retain point slices after a call returns.
type Surface interface {
	Size() geometry.Size

	FillRect(r geometry.Rect, c color.Color)
	StrokeRect(r geometry.Rect, c color.Color, width float64)
	FillCircle(center geometry.Point2D, radius float64, c color.Color)
	StrokeCircle(center geometry.Point2D, radius float64, c color.Color, width float64)
	Polyline(points []geometry.Point2D, c color.Color, width float64)
	FillPolygon(points []geometry.Point2D, c color.Color)
	StrokePolygon(points []geometry.Point2D, c color.Color, width float64)

	// MeasureText returns the extent of text at the given size, in the
	// current user space.
	MeasureText(text string, size float64) geometry.Size
	DrawText(text string, at geometry.Point2D, style TextStyle)

	// DrawImage blits img scaled into dst, clipped to the inscribed circle of
	// dst when circleClip is set.
	DrawImage(img image.Image, dst geometry.Rect, circleClip bool)

	Save()
	Translate(dx, dy float64)
	Scale(sx, sy float64)
	Restore()
}

// applyCamera pushes the camera's forward transform onto s.
func applyCamera(s Surface, cam camera.Camera) {
	c := s.Size().Center()
	s.Translate(c.X+cam.OffsetX, c.Y+cam.OffsetY)
	s.Scale(cam.Zoom, cam.Zoom)
	s.Translate(-c.X, -c.Y)
}
