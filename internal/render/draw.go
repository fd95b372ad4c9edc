package render

import (
	"image/color"
	"math"

	"starmap/internal/cluster"
	"starmap/pkg/colorutil"
	"starmap/pkg/geometry"
)

// Shape is the outline used for a marker, independent of its color.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeDiamond
	ShapeTriangle
	ShapeRing
)

// labelBacking is the translucent rectangle behind anchor labels.
var labelBacking = color.RGBA{R: 0, G: 0, B: 0, A: 160}

// painter carries per-frame scratch buffers so drawing does not allocate.
type painter struct {
	poly []geometry.Point2D
	seg  [2]geometry.Point2D
}

func (p *painter) marker(s Surface, shape Shape, at geometry.Point2D, r float64, c color.Color, lineWidth float64) {
	switch shape {
	case ShapeDiamond:
		p.poly = geometry.AppendRegularPolygon(p.poly[:0], at, r*1.2, 4, -math.Pi/2)
		s.FillPolygon(p.poly, c)
	case ShapeTriangle:
		p.poly = geometry.AppendRegularPolygon(p.poly[:0], at, r*1.3, 3, -math.Pi/2)
		s.FillPolygon(p.poly, c)
	case ShapeRing:
		s.StrokeCircle(at, r, c, lineWidth)
	default:
		s.FillCircle(at, r, c)
	}
}

func (p *painter) line(s Surface, a, b geometry.Point2D, c color.Color, width float64) {
	p.seg[0], p.seg[1] = a, b
	s.Polyline(p.seg[:], c, width)
}

// label draws text centered on at over a translucent backing sized to the
// measured extent. size and pad are in the current user space.
func label(s Surface, text string, at geometry.Point2D, size, pad, opacity float64, c color.RGBA) {
	if text == "" || opacity <= 0 {
		return
	}
	ext := s.MeasureText(text, size)
	s.FillRect(geometry.Rect{
		X:      at.X - ext.Width/2 - pad,
		Y:      at.Y - ext.Height/2 - pad,
		Width:  ext.Width + 2*pad,
		Height: ext.Height + 2*pad,
	}, colorutil.WithAlpha(labelBacking, opacity))
	s.DrawText(text, at, TextStyle{Size: size, Color: colorutil.WithAlpha(c, opacity), Align: AlignCenter})
}

// drawAnchors draws every cluster anchor with a zoom-dependent style.
func drawAnchors(s Surface, anchors []cluster.Anchor, style cluster.LabelStyle, zoom float64) {
	pad := 3 / zoom
	for _, a := range anchors {
		label(s, a.Label, a.Position(), style.FontSize, pad, style.Opacity, colorutil.White)
	}
}

// hoverRing highlights a hovered marker and tags it with its name.
func hoverRing(s Surface, at geometry.Point2D, r, zoom float64, name string) {
	s.StrokeCircle(at, r+4/zoom, colorutil.Highlight, 2/zoom)
	if name == "" {
		return
	}
	size := 12 / zoom
	tag := geometry.Pt(at.X, at.Y-r-size)
	label(s, name, tag, size, 2/zoom, 1, colorutil.Highlight)
}
