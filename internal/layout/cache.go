package layout

import (
	"starmap/pkg/geometry"
)

// Placement is where a marker was drawn in the current frame.
type Placement struct {
	Pos    geometry.Point2D
	Radius float64
}

// PositionCache maps entity identity to its adjusted placement. It is rebuilt
// every frame and read by both drawing and hit-testing. Iteration follows
// insertion order.
type PositionCache struct {
	ids     []int64
	entries []Placement
	index   map[int64]int
}

// NewPositionCache returns an empty cache.
func NewPositionCache() *PositionCache {
	return &PositionCache{index: make(map[int64]int)}
}

// Reset empties the cache, keeping its storage.
func (c *PositionCache) Reset() {
	c.ids = c.ids[:0]
	c.entries = c.entries[:0]
	clear(c.index)
}

// Put records a placement, replacing any earlier one for id.
func (c *PositionCache) Put(id int64, p Placement) {
	if i, ok := c.index[id]; ok {
		c.entries[i] = p
		return
	}
	c.index[id] = len(c.ids)
	c.ids = append(c.ids, id)
	c.entries = append(c.entries, p)
}

// Fill resets the cache and stores every marker.
func (c *PositionCache) Fill(markers []Marker) {
	c.Reset()
	for _, m := range markers {
		c.Put(m.ID, Placement{Pos: m.Pos, Radius: m.Radius})
	}
}

// Get returns the placement of id.
func (c *PositionCache) Get(id int64) (Placement, bool) {
	i, ok := c.index[id]
	if !ok {
		return Placement{}, false
	}
	return c.entries[i], true
}

// Each calls fn for every entry in insertion order.
func (c *PositionCache) Each(fn func(id int64, p Placement)) {
	for i, id := range c.ids {
		fn(id, c.entries[i])
	}
}

// Len implements spatial.Candidates.
func (c *PositionCache) Len() int { return len(c.ids) }

// At implements spatial.Candidates.
func (c *PositionCache) At(i int) (int64, geometry.Point2D, float64) {
	return c.ids[i], c.entries[i].Pos, c.entries[i].Radius
}
