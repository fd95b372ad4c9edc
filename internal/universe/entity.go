// Package universe holds the immutable entity set rendered by the map and
// local system views.
package universe

import (
	"starmap/pkg/geometry"
)

// HighSecThreshold is the rounded security status at which a system counts as
// high security.
const HighSecThreshold = 0.45

// Entity is a single system on the map.
type Entity struct {
	ID        int64
	Name      string
	RegionID  int64
	FactionID int64 // static faction affiliation, zero if none
	Security  float64
	Position  geometry.Point2D // 2D projection of the world position
}

// SecurityBand classifies an entity for color-independent marker shapes.
type SecurityBand int

const (
	BandHigh SecurityBand = iota
	BandLow
	BandNull
)

// Band returns the security band of the entity.
func (e Entity) Band() SecurityBand {
	switch {
	case e.Security >= HighSecThreshold:
		return BandHigh
	case e.Security > 0:
		return BandLow
	default:
		return BandNull
	}
}

// Edge is an unordered connection between two entities. Normalized edges
// always have A < B.
type Edge struct {
	A, B int64
}

// NewEdge returns the normalized edge for a pair of identities.
func NewEdge(a, b int64) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// DedupEdges normalizes every edge and removes duplicates, keeping the first
// occurrence order. Self-loops are dropped.
func DedupEdges(edges []Edge) []Edge {
	seen := make(map[Edge]struct{}, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		n := NewEdge(e.A, e.B)
		if n.A == n.B {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Region is a named group of systems.
type Region struct {
	ID   int64
	Name string
}

// Faction is a named owner that may appear in faction overlay data.
type Faction struct {
	ID   int64
	Name string
}

// Alliance is a named owner that may appear in alliance overlay data.
type Alliance struct {
	ID   int64
	Name string
}
