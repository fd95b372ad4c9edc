package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap/internal/camera"
	"starmap/internal/render"
	"starmap/internal/universe"
	"starmap/pkg/geometry"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

// assertColor compares colors allowing for rasterizer coverage rounding.
func assertColor(t *testing.T, want, got color.RGBA, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 2, msgAndArgs...)
	assert.InDelta(t, want.G, got.G, 2, msgAndArgs...)
	assert.InDelta(t, want.B, got.B, 2, msgAndArgs...)
	assert.InDelta(t, want.A, got.A, 2, msgAndArgs...)
}

func TestFillRect(t *testing.T) {
	s := New(40, 30)
	s.FillRect(geometry.Rect{Width: 40, Height: 30}, red)
	assertColor(t, red, s.Image().RGBAAt(5, 5))
	assertColor(t, red, s.Image().RGBAAt(39, 29))
	assert.Equal(t, geometry.Size{Width: 40, Height: 30}, s.Size())
}

func TestFillCircle(t *testing.T) {
	s := New(100, 100)
	s.FillCircle(geometry.Pt(50, 50), 10, green)
	assertColor(t, green, s.Image().RGBAAt(50, 50))
	assert.Equal(t, color.RGBA{}, s.Image().RGBAAt(50, 65))
	assert.Equal(t, color.RGBA{}, s.Image().RGBAAt(0, 0))
}

func TestTransformStack(t *testing.T) {
	s := New(200, 100)
	s.Save()
	s.Translate(100, 0)
	s.Scale(2, 2)
	s.FillCircle(geometry.Pt(10, 10), 5, green)
	s.Restore()
	s.FillCircle(geometry.Pt(10, 10), 3, red)

	assertColor(t, green, s.Image().RGBAAt(120, 20))
	assertColor(t, green, s.Image().RGBAAt(128, 20), "radius scales with the transform")
	assertColor(t, red, s.Image().RGBAAt(10, 10))

	s.Restore() // unbalanced restore is ignored
}

func TestStrokeCircleLeavesCenterEmpty(t *testing.T) {
	s := New(100, 100)
	s.StrokeCircle(geometry.Pt(50, 50), 20, blue, 4)
	assert.Equal(t, color.RGBA{}, s.Image().RGBAAt(50, 50))
	assertColor(t, blue, s.Image().RGBAAt(70, 50))
}

func TestPolylineAndPolygon(t *testing.T) {
	s := New(100, 100)
	s.Polyline([]geometry.Point2D{geometry.Pt(10, 50), geometry.Pt(90, 50)}, red, 4)
	assertColor(t, red, s.Image().RGBAAt(50, 50))
	assert.Equal(t, color.RGBA{}, s.Image().RGBAAt(50, 60))

	s.FillPolygon(geometry.Diamond(geometry.Pt(50, 20), 10), green)
	assertColor(t, green, s.Image().RGBAAt(50, 20))
	assert.Equal(t, color.RGBA{}, s.Image().RGBAAt(42, 12))

	s.StrokePolygon(geometry.Triangle(geometry.Pt(20, 80), 10), blue, 2)
	assert.Equal(t, color.RGBA{}, s.Image().RGBAAt(20, 81))
}

func TestOffscreenPrimitivesAreSkipped(t *testing.T) {
	s := New(50, 50)
	s.FillCircle(geometry.Pt(-500, -500), 10, red)
	s.Polyline([]geometry.Point2D{geometry.Pt(1000, 0), geometry.Pt(2000, 0)}, red, 1)
	s.FillCircle(geometry.Pt(0, 0), 5, red)
	assertColor(t, red, s.Image().RGBAAt(0, 0))
}

func TestMeasureTextFollowsScale(t *testing.T) {
	s := New(400, 100)
	base := s.MeasureText("Amarr", 14)
	assert.Greater(t, base.Width, 0.0)
	assert.Greater(t, base.Height, 0.0)

	s.Save()
	s.Scale(2, 2)
	scaled := s.MeasureText("Amarr", 14)
	s.Restore()
	assert.InEpsilon(t, base.Width, scaled.Width, 0.15)

	tiny := s.MeasureText("Amarr", 1)
	assert.InDelta(t, 5*0.55, tiny.Width, 1e-9)
}

func TestDrawText(t *testing.T) {
	s := New(200, 60)
	s.DrawText("Jita", geometry.Pt(100, 30), render.TextStyle{Size: 24, Color: red, Align: render.AlignCenter})

	painted := 0
	b := s.Image().Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if s.Image().RGBAAt(x, y).A > 0 {
				painted++
				assert.InDelta(t, 100, x, 40)
			}
		}
	}
	assert.Greater(t, painted, 20)
}

func TestDrawImageCircleClip(t *testing.T) {
	icon := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			icon.SetRGBA(x, y, blue)
		}
	}
	s := New(40, 40)
	s.DrawImage(icon, geometry.Rect{X: 10, Y: 10, Width: 20, Height: 20}, true)
	assert.Greater(t, s.Image().RGBAAt(20, 20).B, uint8(240))
	assert.Equal(t, color.RGBA{}, s.Image().RGBAAt(10, 10), "corner is clipped")

	s.DrawImage(icon, geometry.Rect{X: 0, Y: 0, Width: 10, Height: 10}, false)
	assert.Greater(t, s.Image().RGBAAt(0, 0).B, uint8(240))
}

func TestWritePNG(t *testing.T) {
	s := New(16, 16)
	s.FillRect(geometry.Rect{Width: 16, Height: 16}, red)
	var buf bytes.Buffer
	require.NoError(t, s.WritePNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
}

func TestMapViewRendersMarkers(t *testing.T) {
	d, err := universe.NewDataset([]universe.Entity{
		{ID: 1, RegionID: 1, Security: 1, Position: geometry.Pt(0, 0)},
		{ID: 2, RegionID: 1, Security: 1, Position: geometry.Pt(1, 1)},
	}, nil, nil, nil, nil)
	require.NoError(t, err)

	s := New(200, 200)
	v := render.NewMapView(d, render.DefaultMapParams())
	v.Layout(s.Size())
	cam := camera.CenterOn(v.Center(), 1, s.Size())
	v.Draw(s, cam)

	bg := render.DefaultMapParams().Background
	marker := cam.ToScreen(v.Position(0), s.Size())
	assert.NotEqual(t, bg, s.Image().RGBAAt(int(marker.X), int(marker.Y)))
	assertColor(t, bg, s.Image().RGBAAt(5, 100))
}
