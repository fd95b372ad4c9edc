package render

import (
	"image"
	"image/color"

	"starmap/pkg/geometry"
)

type op struct {
	kind   string
	points []geometry.Point2D
	rect   geometry.Rect
	radius float64
	width  float64
	color  color.Color
	text   string
	size   float64
	clip   bool
}

// recorder is a Surface that logs every call.
type recorder struct {
	size  geometry.Size
	ops   []op
	depth int
}

func newRecorder(w, h float64) *recorder {
	return &recorder{size: geometry.Size{Width: w, Height: h}}
}

func (r *recorder) Size() geometry.Size { return r.size }

func (r *recorder) FillRect(rect geometry.Rect, c color.Color) {
	r.ops = append(r.ops, op{kind: "fillRect", rect: rect, color: c})
}

func (r *recorder) StrokeRect(rect geometry.Rect, c color.Color, width float64) {
	r.ops = append(r.ops, op{kind: "strokeRect", rect: rect, color: c, width: width})
}

func (r *recorder) FillCircle(center geometry.Point2D, radius float64, c color.Color) {
	r.ops = append(r.ops, op{kind: "fillCircle", points: []geometry.Point2D{center}, radius: radius, color: c})
}

func (r *recorder) StrokeCircle(center geometry.Point2D, radius float64, c color.Color, width float64) {
	r.ops = append(r.ops, op{kind: "strokeCircle", points: []geometry.Point2D{center}, radius: radius, color: c, width: width})
}

func (r *recorder) Polyline(points []geometry.Point2D, c color.Color, width float64) {
	r.ops = append(r.ops, op{kind: "polyline", points: append([]geometry.Point2D(nil), points...), color: c, width: width})
}

func (r *recorder) FillPolygon(points []geometry.Point2D, c color.Color) {
	r.ops = append(r.ops, op{kind: "fillPolygon", points: append([]geometry.Point2D(nil), points...), color: c})
}

func (r *recorder) StrokePolygon(points []geometry.Point2D, c color.Color, width float64) {
	r.ops = append(r.ops, op{kind: "strokePolygon", points: append([]geometry.Point2D(nil), points...), color: c, width: width})
}

func (r *recorder) MeasureText(text string, size float64) geometry.Size {
	return geometry.Size{Width: float64(len(text)) * size * 0.5, Height: size}
}

func (r *recorder) DrawText(text string, at geometry.Point2D, style TextStyle) {
	r.ops = append(r.ops, op{kind: "text", points: []geometry.Point2D{at}, text: text, size: style.Size, color: style.Color})
}

func (r *recorder) DrawImage(_ image.Image, dst geometry.Rect, circleClip bool) {
	r.ops = append(r.ops, op{kind: "image", rect: dst, clip: circleClip})
}

func (r *recorder) Save()                  { r.depth++ }
func (r *recorder) Translate(_, _ float64) {}
func (r *recorder) Scale(_, _ float64)     {}
func (r *recorder) Restore()               { r.depth-- }

func (r *recorder) count(kind string) int {
	n := 0
	for _, o := range r.ops {
		if o.kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) first(kind string) int {
	for i, o := range r.ops {
		if o.kind == kind {
			return i
		}
	}
	return -1
}

func (r *recorder) last(kind string) int {
	for i := len(r.ops) - 1; i >= 0; i-- {
		if r.ops[i].kind == kind {
			return i
		}
	}
	return -1
}

func (r *recorder) texts() []string {
	var out []string
	for _, o := range r.ops {
		if o.kind == "text" {
			out = append(out, o.text)
		}
	}
	return out
}
