package universe

import (
	"errors"
	"fmt"
)

// ErrSystemNotFound is returned when a local view is requested for an
// identity that is not part of the dataset.
var ErrSystemNotFound = errors.New("system not found")

// Dataset is the full entity and edge set for a map view plus the local
// systems that can be opened from it. It is built once and never mutated.
type Dataset struct {
	Entities  []Entity
	Edges     []Edge
	Regions   []Region
	Factions  []Faction
	Alliances []Alliance

	entityIndex   map[int64]int
	regionIndex   map[int64]int
	factionIndex  map[int64]int
	allianceIndex map[int64]int
	regionMembers map[int64][]int
	systems       map[int64]*LocalSystem
}

// NewDataset builds the identity indexes. Edges are deduplicated and edges
// referencing unknown entities are dropped.
func NewDataset(entities []Entity, edges []Edge, regions []Region, factions []Faction, systems []*LocalSystem) (*Dataset, error) {
	d := &Dataset{
		Entities:      entities,
		Regions:       regions,
		Factions:      factions,
		entityIndex:   make(map[int64]int, len(entities)),
		regionIndex:   make(map[int64]int, len(regions)),
		factionIndex:  make(map[int64]int, len(factions)),
		regionMembers: make(map[int64][]int),
		systems:       make(map[int64]*LocalSystem, len(systems)),
	}
	for i, e := range entities {
		if _, dup := d.entityIndex[e.ID]; dup {
			return nil, fmt.Errorf("duplicate entity %d", e.ID)
		}
		d.entityIndex[e.ID] = i
		d.regionMembers[e.RegionID] = append(d.regionMembers[e.RegionID], i)
	}
	for i, r := range regions {
		d.regionIndex[r.ID] = i
	}
	for i, f := range factions {
		d.factionIndex[f.ID] = i
	}
	for _, s := range systems {
		d.systems[s.SystemID] = s
	}

	d.Edges = make([]Edge, 0, len(edges))
	for _, e := range DedupEdges(edges) {
		if _, ok := d.entityIndex[e.A]; !ok {
			continue
		}
		if _, ok := d.entityIndex[e.B]; !ok {
			continue
		}
		d.Edges = append(d.Edges, e)
	}
	return d, nil
}

// Entity returns the entity with the given identity.
func (d *Dataset) Entity(id int64) (Entity, bool) {
	i, ok := d.entityIndex[id]
	if !ok {
		return Entity{}, false
	}
	return d.Entities[i], true
}

// Index returns the position of an entity in Entities, or -1.
func (d *Dataset) Index(id int64) int {
	if i, ok := d.entityIndex[id]; ok {
		return i
	}
	return -1
}

// Region returns the region with the given identity.
func (d *Dataset) Region(id int64) (Region, bool) {
	i, ok := d.regionIndex[id]
	if !ok {
		return Region{}, false
	}
	return d.Regions[i], true
}

// RegionName returns the display name for a region, falling back to its id.
func (d *Dataset) RegionName(id int64) string {
	if r, ok := d.Region(id); ok && r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("Region %d", id)
}

// FactionName returns the display name for a faction id.
func (d *Dataset) FactionName(id int64) (string, bool) {
	i, ok := d.factionIndex[id]
	if !ok {
		return "", false
	}
	return d.Factions[i].Name, true
}

// WithAlliances attaches alliance names and returns d. It belongs to
// construction and must not be called once the dataset is shared.
func (d *Dataset) WithAlliances(alliances []Alliance) *Dataset {
	d.Alliances = alliances
	d.allianceIndex = make(map[int64]int, len(alliances))
	for i, a := range alliances {
		d.allianceIndex[a.ID] = i
	}
	return d
}

// AllianceName returns the display name for an alliance id.
func (d *Dataset) AllianceName(id int64) (string, bool) {
	i, ok := d.allianceIndex[id]
	if !ok {
		return "", false
	}
	return d.Alliances[i].Name, true
}

// RegionMembers returns the indexes into Entities of every entity in a region.
func (d *Dataset) RegionMembers(regionID int64) []int {
	return d.regionMembers[regionID]
}

// System returns the local system for an entity identity.
func (d *Dataset) System(id int64) (*LocalSystem, error) {
	s, ok := d.systems[id]
	if !ok {
		return nil, fmt.Errorf("system %d: %w", id, ErrSystemNotFound)
	}
	return s, nil
}
