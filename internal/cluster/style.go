package cluster

import (
	"starmap/internal/camera"
)

// LabelStyle is the size and opacity of anchor labels at a zoom level.
type LabelStyle struct {
	FontSize float64 // in pre-camera units; FontSize*zoom is constant on screen
	Opacity  float64
}

// StyleParams controls how labels react to zoom.
type StyleParams struct {
	BasePx    float64 // on-screen text height
	FadeStart float64 // zoom at which labels start fading
	FadeFloor float64 // minimum opacity at maximum zoom
}

// Style returns the label style for zoom. Opacity is 1 up to FadeStart and
// falls linearly to FadeFloor at the maximum zoom.
func (p StyleParams) Style(zoom float64) LabelStyle {
	s := LabelStyle{FontSize: p.BasePx / zoom, Opacity: 1}
	if zoom > p.FadeStart && camera.MaxZoom > p.FadeStart {
		t := (zoom - p.FadeStart) / (camera.MaxZoom - p.FadeStart)
		if t > 1 {
			t = 1
		}
		s.Opacity = 1 - t*(1-p.FadeFloor)
	}
	return s
}
