// Package layout separates overlapping markers of the local system view.
package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"starmap/pkg/geometry"
)

// DefaultIterations is the iteration cap used by the system view.
const DefaultIterations = 5

// goldenAngle spreads coincident markers in distinct directions.
const goldenAngle = 2.399963229728653

// slack absorbs rounding so a pair pushed to exactly minSep is not reported
// as colliding again.
const slack = 1e-9

// Marker is a drawn marker in pre-camera pixel space.
type Marker struct {
	ID     int64
	Pos    geometry.Point2D
	Radius float64
}

// Stats reports how a relaxation pass went.
type Stats struct {
	Iterations int
	Collisions int // collisions found in the last iteration run
	Converged  bool
}

type cellKey struct{ x, y int }

// Relaxer runs the de-overlap pass and keeps its hash grid between calls.
type Relaxer struct {
	grid map[cellKey][]int
	keys []cellKey
}

// Relax is a convenience wrapper around a fresh Relaxer.
func Relax(markers []Marker, minSep float64, iterations int) Stats {
	var r Relaxer
	return r.Relax(markers, minSep, iterations)
}

// Relax moves markers in place until no two are closer than minSep or the
// iteration cap is reached. Each iteration buckets markers into cells of
// 2*minSep, checks every unordered pair in the 3x3 neighbourhood once, and
// pushes colliding pairs apart by half the penetration depth each.
// Leftover overlap after the last iteration is accepted.
func (r *Relaxer) Relax(markers []Marker, minSep float64, iterations int) Stats {
	var st Stats
	if len(markers) < 2 || minSep <= 0 {
		st.Converged = true
		return st
	}
	if r.grid == nil {
		r.grid = make(map[cellKey][]int)
	}
	cell := 2 * minSep

	for it := 0; it < iterations; it++ {
		st.Iterations++
		r.index(markers, cell)

		collisions := 0
		for i := range markers {
			home := r.keys[i]
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					for _, j := range r.grid[cellKey{home.x + dx, home.y + dy}] {
						if j <= i {
							continue
						}
						if separate(&markers[i], &markers[j], minSep, j) {
							collisions++
						}
					}
				}
			}
		}

		st.Collisions = collisions
		if collisions == 0 {
			st.Converged = true
			break
		}
	}
	return st
}

func (r *Relaxer) index(markers []Marker, cell float64) {
	for k, v := range r.grid {
		r.grid[k] = v[:0]
	}
	r.keys = r.keys[:0]
	for i, m := range markers {
		k := cellKey{int(math.Floor(m.Pos.X / cell)), int(math.Floor(m.Pos.Y / cell))}
		r.keys = append(r.keys, k)
		r.grid[k] = append(r.grid[k], i)
	}
}

// separate pushes a and b apart when closer than minSep and reports whether
// they collided.
func separate(a, b *Marker, minSep float64, salt int) bool {
	pa, pb := toVec(a.Pos), toVec(b.Pos)
	d := r2.Sub(pb, pa)
	dist := r2.Norm(d)
	if dist >= minSep-slack {
		return false
	}

	var dir r2.Vec
	if dist == 0 {
		angle := float64(salt) * goldenAngle
		dir = r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
	} else {
		dir = r2.Scale(1/dist, d)
	}
	push := r2.Scale((minSep-dist)/2, dir)
	a.Pos = fromVec(r2.Sub(pa, push))
	b.Pos = fromVec(r2.Add(pb, push))
	return true
}

func toVec(p geometry.Point2D) r2.Vec   { return r2.Vec{X: p.X, Y: p.Y} }
func fromVec(v r2.Vec) geometry.Point2D { return geometry.Point2D{X: v.X, Y: v.Y} }
