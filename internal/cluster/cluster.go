// Package cluster groups map entities into labelled anchors according to the
// active coloring mode.
package cluster

import (
	"fmt"
	"strings"

	"starmap/internal/universe"
	"starmap/pkg/geometry"
)

// Mode selects how markers are colored and how labels are grouped.
type Mode int

const (
	// ModeSecurity colors by security status and labels regions. It is the
	// default mode.
	ModeSecurity Mode = iota
	// ModeRegion colors and groups by region.
	ModeRegion
	// ModeFaction colors and groups by the faction ownership overlay.
	ModeFaction
	// ModeAlliance colors by the alliance ownership overlay and splits each
	// alliance into spatially connected groups.
	ModeAlliance
)

var modeNames = []string{"security", "region", "faction", "alliance"}

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return ModeSecurity, fmt.Errorf("unknown mode %q", s)
}

// UsesOverlay reports whether the mode needs overlay data.
func (m Mode) UsesOverlay() bool {
	return m == ModeFaction || m == ModeAlliance
}

// Anchor is a derived label position for a group of entities.
type Anchor struct {
	GroupID int64
	Part    int // spatial sub-group index, always 0 outside ModeAlliance
	Sum     geometry.Point2D
	Count   int
	Label   string
}

// Position returns the mean position of the anchor's members.
func (a Anchor) Position() geometry.Point2D {
	if a.Count == 0 {
		return geometry.Point2D{}
	}
	return a.Sum.Scale(1 / float64(a.Count))
}

// Input is the per-frame data the aggregator groups.
type Input struct {
	Entities  []universe.Entity
	Positions []geometry.Point2D // projected positions, parallel to Entities
	Overlay   map[int64]int64    // entity id -> owner id, nil when unavailable
	Label     func(groupID int64) string
}

// Aggregator builds anchors. It keeps scratch buffers between calls to avoid
// per-frame allocation; the returned slice is only valid until the next call.
type Aggregator struct {
	ProximityPx float64

	groups  map[int64]int
	members [][]int
	anchors []Anchor
	owners  []Anchor
	visited []bool
	flat    []int
	ends    []int
}

// NewAggregator returns an aggregator using the given single-linkage distance
// threshold for ModeAlliance.
func NewAggregator(proximityPx float64) *Aggregator {
	return &Aggregator{ProximityPx: proximityPx, groups: make(map[int64]int)}
}

// Aggregate groups entities for mode. Entities without an overlay owner are
// left out of overlay modes.
func (a *Aggregator) Aggregate(mode Mode, in Input) []Anchor {
	clear(a.groups)
	for i := range a.members {
		a.members[i] = a.members[i][:0]
	}
	a.anchors = a.anchors[:0]
	used := 0

	for i, e := range in.Entities {
		var key int64
		switch mode {
		case ModeSecurity, ModeRegion:
			key = e.RegionID
		default:
			owner, ok := in.Overlay[e.ID]
			if !ok || owner == 0 {
				continue
			}
			key = owner
		}
		g, ok := a.groups[key]
		if !ok {
			g = used
			used++
			a.groups[key] = g
			if g == len(a.members) {
				a.members = append(a.members, nil)
			}
			a.anchors = append(a.anchors, Anchor{GroupID: key})
		}
		a.members[g] = append(a.members[g], i)
	}

	if mode != ModeAlliance {
		for g := 0; g < used; g++ {
			anchor := &a.anchors[g]
			for _, idx := range a.members[g] {
				anchor.Sum = anchor.Sum.Add(in.Positions[idx])
			}
			anchor.Count = len(a.members[g])
			anchor.Label = label(in, anchor.GroupID)
		}
		return a.anchors
	}

	// Alliance mode: one anchor per connected component, replacing the
	// per-owner placeholders.
	a.owners = append(a.owners[:0], a.anchors...)
	a.anchors = a.anchors[:0]
	for g := range a.owners {
		id := a.owners[g].GroupID
		name := label(in, id)
		a.proximityGroups(a.members[g], in.Positions)
		first := 0
		for part, last := range a.ends {
			anchor := Anchor{GroupID: id, Part: part, Count: last - first, Label: name}
			for _, idx := range a.flat[first:last] {
				anchor.Sum = anchor.Sum.Add(in.Positions[idx])
			}
			a.anchors = append(a.anchors, anchor)
			first = last
		}
	}
	return a.anchors
}

func label(in Input, id int64) string {
	if in.Label != nil {
		return in.Label(id)
	}
	return fmt.Sprintf("%d", id)
}

// proximityGroups fills a.flat and a.ends with the components of members,
// reusing the scratch buffers.
func (a *Aggregator) proximityGroups(members []int, positions []geometry.Point2D) {
	if cap(a.visited) < len(members) {
		a.visited = make([]bool, len(members))
	}
	a.visited = a.visited[:len(members)]
	clear(a.visited)
	a.flat, a.ends = appendComponents(a.flat[:0], a.ends[:0], members, positions, a.ProximityPx, a.visited)
}

// ProximityGroups partitions member indexes into connected components of the
// graph linking members closer than or equal to threshold. A cluster is
// seeded with the first unvisited member; every not-yet-visited member within
// the threshold of any current cluster member is absorbed, and the scan
// restarts from the cluster's first member after each absorption so newly
// joined members are tested against the rest. visited must have len(members)
// and be all false; pass nil to allocate.
func ProximityGroups(members []int, positions []geometry.Point2D, threshold float64, visited []bool) [][]int {
	if visited == nil {
		visited = make([]bool, len(members))
	}
	flat, ends := appendComponents(nil, nil, members, positions, threshold, visited)
	groups := make([][]int, 0, len(ends))
	first := 0
	for _, last := range ends {
		groups = append(groups, flat[first:last:last])
		first = last
	}
	return groups
}

// appendComponents appends the components back to back to flat and the end
// offset of each one to ends.
func appendComponents(flat, ends, members []int, positions []geometry.Point2D, threshold float64, visited []bool) ([]int, []int) {
	limit := threshold * threshold
	for seed := range members {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		first := len(flat)
		flat = append(flat, members[seed])

		for j := first; j < len(flat); {
			from := positions[flat[j]]
			absorbed := false
			for k, idx := range members {
				if visited[k] {
					continue
				}
				if from.DistanceSq(positions[idx]) <= limit {
					visited[k] = true
					flat = append(flat, idx)
					absorbed = true
				}
			}
			if absorbed {
				j = first
			} else {
				j++
			}
		}
		ends = append(ends, len(flat))
	}
	return flat, ends
}
