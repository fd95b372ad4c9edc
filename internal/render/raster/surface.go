// Package raster implements render.Surface on an in-memory RGBA image using
// the golang.org/x/image vector rasterizer and OpenType text.
package raster

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"starmap/internal/render"
	"starmap/pkg/geometry"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// Surface draws into an *image.RGBA. It is not safe for concurrent use.
type Surface struct {
	img   *image.RGBA
	xf    geometry.AffineTransform
	stack []geometry.AffineTransform
	ras   *vector.Rasterizer
	path  path
	src   *image.Uniform
	faces *faceCache
}

var _ render.Surface = (*Surface)(nil)

// New returns a transparent surface of the given pixel size.
func New(width, height int) *Surface {
	return &Surface{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		xf:    geometry.Identity(),
		ras:   vector.NewRasterizer(0, 0),
		src:   image.NewUniform(color.Transparent),
		faces: newFaceCache(),
	}
}

// Resize reallocates the backing image when the size changes and resets the
// transform stack.
func (s *Surface) Resize(width, height int) {
	if b := s.img.Bounds(); b.Dx() != width || b.Dy() != height {
		s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	s.xf = geometry.Identity()
	s.stack = s.stack[:0]
}

// Image returns the backing image.
func (s *Surface) Image() *image.RGBA { return s.img }

// WritePNG encodes the current image as PNG.
func (s *Surface) WritePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}

// Size implements render.Surface.
func (s *Surface) Size() geometry.Size {
	b := s.img.Bounds()
	return geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// Save implements render.Surface.
func (s *Surface) Save() { s.stack = append(s.stack, s.xf) }

// Restore implements render.Surface.
func (s *Surface) Restore() {
	if n := len(s.stack); n > 0 {
		s.xf = s.stack[n-1]
		s.stack = s.stack[:n-1]
	}
}

// Translate implements render.Surface.
func (s *Surface) Translate(dx, dy float64) {
	s.xf = s.xf.Compose(geometry.Translation(dx, dy))
}

// Scale implements render.Surface.
func (s *Surface) Scale(sx, sy float64) {
	s.xf = s.xf.Compose(geometry.Scale(sx, sy))
}

func (s *Surface) dev(p geometry.Point2D) geometry.Point2D { return s.xf.Apply(p) }

// FillRect implements render.Surface.
func (s *Surface) FillRect(r geometry.Rect, c color.Color) {
	s.path.reset()
	s.path.moveTo(s.dev(geometry.Pt(r.X, r.Y)))
	s.path.lineTo(s.dev(geometry.Pt(r.X+r.Width, r.Y)))
	s.path.lineTo(s.dev(geometry.Pt(r.X+r.Width, r.Y+r.Height)))
	s.path.lineTo(s.dev(geometry.Pt(r.X, r.Y+r.Height)))
	s.path.close()
	s.fill(c)
}

// StrokeRect implements render.Surface.
func (s *Surface) StrokeRect(r geometry.Rect, c color.Color, width float64) {
	corners := [4]geometry.Point2D{
		geometry.Pt(r.X, r.Y),
		geometry.Pt(r.X+r.Width, r.Y),
		geometry.Pt(r.X+r.Width, r.Y+r.Height),
		geometry.Pt(r.X, r.Y+r.Height),
	}
	s.stroke(corners[:], true, c, width)
}

// FillCircle implements render.Surface.
func (s *Surface) FillCircle(center geometry.Point2D, radius float64, c color.Color) {
	s.path.reset()
	s.path.circle(s.dev(center), radius*s.xf.UniformScale(), false)
	s.fill(c)
}

// StrokeCircle implements render.Surface. The ring is an outer circle with a
// reversed inner circle cut out of it.
func (s *Surface) StrokeCircle(center geometry.Point2D, radius float64, c color.Color, width float64) {
	scale := s.xf.UniformScale()
	r, w := radius*scale, math.Max(width*scale, 1)
	s.path.reset()
	s.path.circle(s.dev(center), r+w/2, false)
	if inner := r - w/2; inner > 0 {
		s.path.circle(s.dev(center), inner, true)
	}
	s.fill(c)
}

// Polyline implements render.Surface.
func (s *Surface) Polyline(points []geometry.Point2D, c color.Color, width float64) {
	s.stroke(points, false, c, width)
}

// FillPolygon implements render.Surface.
func (s *Surface) FillPolygon(points []geometry.Point2D, c color.Color) {
	if len(points) < 3 {
		return
	}
	s.path.reset()
	s.path.moveTo(s.dev(points[0]))
	for _, p := range points[1:] {
		s.path.lineTo(s.dev(p))
	}
	s.path.close()
	s.fill(c)
}

// StrokePolygon implements render.Surface.
func (s *Surface) StrokePolygon(points []geometry.Point2D, c color.Color, width float64) {
	s.stroke(points, true, c, width)
}

// stroke outlines each segment as a quad in device space. Lines thinner than
// a pixel are widened to one pixel so they stay visible.
func (s *Surface) stroke(points []geometry.Point2D, closed bool, c color.Color, width float64) {
	if len(points) < 2 {
		return
	}
	half := math.Max(width*s.xf.UniformScale(), 1) / 2
	s.path.reset()
	n := len(points)
	segments := n - 1
	if closed {
		segments = n
	}
	for i := 0; i < segments; i++ {
		a, b := s.dev(points[i]), s.dev(points[(i+1)%n])
		d := b.Sub(a)
		length := math.Hypot(d.X, d.Y)
		if length == 0 {
			continue
		}
		nrm := geometry.Pt(-d.Y/length*half, d.X/length*half)
		// Extend by half a width so consecutive segments meet without notches.
		ext := geometry.Pt(d.X/length*half, d.Y/length*half)
		a, b = a.Sub(ext), b.Add(ext)
		s.path.moveTo(a.Add(nrm))
		s.path.lineTo(b.Add(nrm))
		s.path.lineTo(b.Sub(nrm))
		s.path.lineTo(a.Sub(nrm))
		s.path.close()
	}
	s.fill(c)
}

// fill rasterizes the current path over its clipped device bounds only, so
// the cost of a marker does not depend on the image size.
func (s *Surface) fill(c color.Color) {
	if s.path.empty() {
		return
	}
	r := s.path.bounds().Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	s.ras.Reset(r.Dx(), r.Dy())
	s.ras.DrawOp = xdraw.Over
	s.path.replay(s.ras, geometry.Pt(float64(r.Min.X), float64(r.Min.Y)))
	s.src.C = c
	s.ras.Draw(s.img, r, s.src, image.Point{})
}

// DrawImage implements render.Surface.
func (s *Surface) DrawImage(img image.Image, dst geometry.Rect, circleClip bool) {
	a := s.dev(geometry.Pt(dst.X, dst.Y))
	b := s.dev(geometry.Pt(dst.X+dst.Width, dst.Y+dst.Height))
	r := image.Rect(int(math.Round(a.X)), int(math.Round(a.Y)), int(math.Round(b.X)), int(math.Round(b.Y))).Canon()
	if r.Empty() || !r.Overlaps(s.img.Bounds()) {
		return
	}

	scaled := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	if !circleClip {
		xdraw.Draw(s.img, r, scaled, image.Point{}, xdraw.Over)
		return
	}
	mask := circleMask{
		center: geometry.Pt(float64(r.Min.X)+float64(r.Dx())/2, float64(r.Min.Y)+float64(r.Dy())/2),
		radius: math.Min(float64(r.Dx()), float64(r.Dy())) / 2,
	}
	xdraw.DrawMask(s.img, r, scaled, image.Point{}, mask, r.Min, xdraw.Over)
}

// circleMask is an anti-aliased disc in device coordinates.
type circleMask struct {
	center geometry.Point2D
	radius float64
}

func (m circleMask) ColorModel() color.Model { return color.AlphaModel }

func (m circleMask) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(m.center.X-m.radius)), int(math.Floor(m.center.Y-m.radius)),
		int(math.Ceil(m.center.X+m.radius)), int(math.Ceil(m.center.Y+m.radius)),
	)
}

func (m circleMask) At(x, y int) color.Color {
	d := math.Hypot(float64(x)+0.5-m.center.X, float64(y)+0.5-m.center.Y)
	cov := geometry.Clamp(m.radius-d+0.5, 0, 1)
	return color.Alpha{A: uint8(cov * 255)}
}
