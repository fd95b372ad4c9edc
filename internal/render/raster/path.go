package raster

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"starmap/pkg/geometry"
)

type pathOp uint8

const (
	opMove pathOp = iota
	opLine
	opCube
	opClose
)

type pathCmd struct {
	op  pathOp
	pts [3]geometry.Point2D
}

// path records device-space commands so the rasterizer can be sized to the
// path's bounds before replaying them.
type path struct {
	cmds     []pathCmd
	min, max geometry.Point2D
}

func (p *path) reset() {
	p.cmds = p.cmds[:0]
	p.min = geometry.Pt(math.Inf(1), math.Inf(1))
	p.max = geometry.Pt(math.Inf(-1), math.Inf(-1))
}

func (p *path) empty() bool { return len(p.cmds) == 0 }

func (p *path) grow(pt geometry.Point2D) {
	p.min = geometry.Pt(math.Min(p.min.X, pt.X), math.Min(p.min.Y, pt.Y))
	p.max = geometry.Pt(math.Max(p.max.X, pt.X), math.Max(p.max.Y, pt.Y))
}

func (p *path) moveTo(a geometry.Point2D) {
	p.grow(a)
	p.cmds = append(p.cmds, pathCmd{op: opMove, pts: [3]geometry.Point2D{a}})
}

func (p *path) lineTo(a geometry.Point2D) {
	p.grow(a)
	p.cmds = append(p.cmds, pathCmd{op: opLine, pts: [3]geometry.Point2D{a}})
}

func (p *path) cubeTo(b, c, d geometry.Point2D) {
	p.grow(b)
	p.grow(c)
	p.grow(d)
	p.cmds = append(p.cmds, pathCmd{op: opCube, pts: [3]geometry.Point2D{b, c, d}})
}

func (p *path) close() {
	p.cmds = append(p.cmds, pathCmd{op: opClose})
}

// circle adds a closed circle made of four cubic arcs, clockwise on screen
// unless reverse is set.
func (p *path) circle(c geometry.Point2D, r float64, reverse bool) {
	k := r * kappa
	sy := 1.0
	if reverse {
		sy = -1
	}
	pt := func(x, y float64) geometry.Point2D { return geometry.Pt(c.X+x, c.Y+y*sy) }

	p.moveTo(pt(r, 0))
	p.cubeTo(pt(r, k), pt(k, r), pt(0, r))
	p.cubeTo(pt(-k, r), pt(-r, k), pt(-r, 0))
	p.cubeTo(pt(-r, -k), pt(-k, -r), pt(0, -r))
	p.cubeTo(pt(k, -r), pt(r, -k), pt(r, 0))
	p.close()
}

// bounds returns the integer pixel rectangle covering the path.
func (p *path) bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(p.min.X)), int(math.Floor(p.min.Y)),
		int(math.Ceil(p.max.X))+1, int(math.Ceil(p.max.Y))+1,
	)
}

// replay feeds the commands to z relative to origin.
func (p *path) replay(z *vector.Rasterizer, origin geometry.Point2D) {
	f := func(q geometry.Point2D) (float32, float32) {
		return float32(q.X - origin.X), float32(q.Y - origin.Y)
	}
	for _, cmd := range p.cmds {
		switch cmd.op {
		case opMove:
			x, y := f(cmd.pts[0])
			z.MoveTo(x, y)
		case opLine:
			x, y := f(cmd.pts[0])
			z.LineTo(x, y)
		case opCube:
			bx, by := f(cmd.pts[0])
			cx, cy := f(cmd.pts[1])
			dx, dy := f(cmd.pts[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		case opClose:
			z.ClosePath()
		}
	}
}
