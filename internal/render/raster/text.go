package raster

import (
	"image"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"starmap/internal/render"
	"starmap/pkg/geometry"
)

const (
	minTextPx = 3
	maxTextPx = 160
)

var (
	goRegularOnce sync.Once
	goRegular     *opentype.Font
	goRegularErr  error
)

func parseGoRegular() (*opentype.Font, error) {
	goRegularOnce.Do(func() {
		goRegular, goRegularErr = opentype.Parse(goregular.TTF)
	})
	return goRegular, goRegularErr
}

// faceCache holds Go Regular faces by integer pixel size. Faces are not safe
// for concurrent use, so every Surface owns its cache.
type faceCache struct {
	faces map[int]font.Face
}

func newFaceCache() *faceCache {
	return &faceCache{faces: make(map[int]font.Face)}
}

func (fc *faceCache) face(px int) (font.Face, error) {
	if f, ok := fc.faces[px]; ok {
		return f, nil
	}
	fnt, err := parseGoRegular()
	if err != nil {
		return nil, err
	}
	f, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	fc.faces[px] = f
	return f, nil
}

// devicePx converts a user-space text size to a cached face size. ok is false
// when the text would be too small to read.
func (s *Surface) devicePx(size float64) (px int, ok bool) {
	d := size * s.xf.UniformScale()
	if d < minTextPx {
		return 0, false
	}
	return int(math.Min(math.Round(d), maxTextPx)), true
}

// MeasureText implements render.Surface.
func (s *Surface) MeasureText(text string, size float64) geometry.Size {
	scale := s.xf.UniformScale()
	px, ok := s.devicePx(size)
	if !ok || scale == 0 {
		// Approximate advance of Go Regular.
		return geometry.Size{Width: float64(len(text)) * size * 0.55, Height: size}
	}
	f, err := s.faces.face(px)
	if err != nil {
		return geometry.Size{Width: float64(len(text)) * size * 0.55, Height: size}
	}
	m := f.Metrics()
	w := fix(font.MeasureString(f, text))
	h := fix(m.Ascent + m.Descent)
	return geometry.Size{Width: w / scale, Height: h / scale}
}

// DrawText implements render.Surface. The anchor is the vertical middle of
// the line.
func (s *Surface) DrawText(text string, at geometry.Point2D, style render.TextStyle) {
	px, ok := s.devicePx(style.Size)
	if !ok || text == "" || style.Color == nil {
		return
	}
	f, err := s.faces.face(px)
	if err != nil {
		return
	}
	m := f.Metrics()
	p := s.dev(at)
	width := fix(font.MeasureString(f, text))
	switch style.Align {
	case render.AlignCenter:
		p.X -= width / 2
	case render.AlignRight:
		p.X -= width
	}
	baseline := p.Y + (fix(m.Ascent)-fix(m.Descent))/2

	b := s.img.Bounds()
	if p.X > float64(b.Max.X) || p.X+width < float64(b.Min.X) ||
		baseline-fix(m.Ascent) > float64(b.Max.Y) || baseline+fix(m.Descent) < float64(b.Min.Y) {
		return
	}

	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(style.Color),
		Face: f,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(p.X * 64), Y: fixed.Int26_6(baseline * 64)},
	}
	d.DrawString(text)
}

func fix(v fixed.Int26_6) float64 { return float64(v) / 64 }
