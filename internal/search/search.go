// Package search implements the map's name lookup.
package search

import (
	"strings"

	"starmap/internal/universe"
)

// DefaultLimit caps the combined number of results.
const DefaultLimit = 10

// Kind says what a result refers to.
type Kind int

const (
	KindSystem Kind = iota
	KindRegion
)

func (k Kind) String() string {
	if k == KindRegion {
		return "region"
	}
	return "system"
}

// Result is a single match.
type Result struct {
	Kind Kind
	ID   int64
	Name string
}

type entry struct {
	id    int64
	name  string
	lower string
}

// Index matches names case-insensitively. It is built once per dataset.
type Index struct {
	systems []entry
	regions []entry
	limit   int
}

// NewIndex builds an index over the systems and regions of d. A limit below 1
// uses DefaultLimit.
func NewIndex(d *universe.Dataset, limit int) *Index {
	if limit < 1 {
		limit = DefaultLimit
	}
	idx := &Index{
		systems: make([]entry, 0, len(d.Entities)),
		regions: make([]entry, 0, len(d.Regions)),
		limit:   limit,
	}
	for _, e := range d.Entities {
		if e.Name != "" {
			idx.systems = append(idx.systems, entry{id: e.ID, name: e.Name, lower: strings.ToLower(e.Name)})
		}
	}
	for _, r := range d.Regions {
		if r.Name != "" {
			idx.regions = append(idx.regions, entry{id: r.ID, name: r.Name, lower: strings.ToLower(r.Name)})
		}
	}
	return idx
}

// Query returns systems whose name contains q, then regions, in dataset
// order, up to the index limit. A blank query matches nothing.
func (idx *Index) Query(q string) []Result {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}

	var out []Result
	for _, e := range idx.systems {
		if len(out) == idx.limit {
			return out
		}
		if strings.Contains(e.lower, q) {
			out = append(out, Result{Kind: KindSystem, ID: e.id, Name: e.name})
		}
	}
	for _, e := range idx.regions {
		if len(out) == idx.limit {
			return out
		}
		if strings.Contains(e.lower, q) {
			out = append(out, Result{Kind: KindRegion, ID: e.id, Name: e.name})
		}
	}
	return out
}
