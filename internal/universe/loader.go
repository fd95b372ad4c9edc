package universe

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"starmap/pkg/geometry"
)

// ErrMalformedRecord is returned for a dataset line that cannot be decoded.
var ErrMalformedRecord = errors.New("malformed record")

// record is one line of the dataset file. The type field selects which of the
// remaining fields are meaningful.
type record struct {
	Type          string   `json:"type"`
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	RegionID      int64    `json:"region_id"`
	FactionID     int64    `json:"faction_id"`
	SystemID      int64    `json:"system_id"`
	Security      float64  `json:"security"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	Z             *float64 `json:"z"`
	From          int64    `json:"from"`
	To            int64    `json:"to"`
	Kind          string   `json:"kind"`
	ImageID       int64    `json:"image_id"`
	DestinationID int64    `json:"destination_id"`
}

// position returns the 2D position of a record. Records carrying a z
// coordinate are 3D and are projected onto the x/z plane.
func (r *record) position() geometry.Point2D {
	if r.Z != nil {
		return geometry.Pt(r.X, *r.Z)
	}
	return geometry.Pt(r.X, r.Y)
}

// LoadFile reads a line-delimited dataset file.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load decodes line-delimited JSON records into a Dataset. Blank lines are
// skipped; unknown record types are ignored.
func Load(r io.Reader) (*Dataset, error) {
	var (
		entities  []Entity
		edges     []Edge
		regions   []Region
		factions  []Faction
		alliances []Alliance
		systems   = make(map[int64]*LocalSystem)
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line, ErrMalformedRecord, err)
		}

		switch rec.Type {
		case "region":
			regions = append(regions, Region{ID: rec.ID, Name: rec.Name})
		case "faction":
			factions = append(factions, Faction{ID: rec.ID, Name: rec.Name})
		case "alliance":
			alliances = append(alliances, Alliance{ID: rec.ID, Name: rec.Name})
		case "system":
			entities = append(entities, Entity{
				ID:        rec.ID,
				Name:      rec.Name,
				RegionID:  rec.RegionID,
				FactionID: rec.FactionID,
				Security:  rec.Security,
				Position:  rec.position(),
			})
		case "gate":
			edges = append(edges, Edge{A: rec.From, B: rec.To})
		case "body":
			kind, ok := ParseBodyKind(rec.Kind)
			if !ok {
				return nil, fmt.Errorf("line %d: %w: unknown body kind %q", line, ErrMalformedRecord, rec.Kind)
			}
			sys := systems[rec.SystemID]
			if sys == nil {
				sys = &LocalSystem{SystemID: rec.SystemID}
				systems[rec.SystemID] = sys
			}
			body := Body{
				ID:            rec.ID,
				Kind:          kind,
				Name:          rec.Name,
				Position:      rec.position(),
				ImageID:       rec.ImageID,
				DestinationID: rec.DestinationID,
			}
			if kind == BodyStar {
				sys.Star = body
			} else {
				sys.Bodies = append(sys.Bodies, body)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	names := make(map[int64]string, len(entities))
	for _, e := range entities {
		names[e.ID] = e.Name
	}
	list := make([]*LocalSystem, 0, len(systems))
	for id, sys := range systems {
		sys.Name = names[id]
		list = append(list, sys)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SystemID < list[j].SystemID })

	d, err := NewDataset(entities, edges, regions, factions, list)
	if err != nil {
		return nil, err
	}
	return d.WithAlliances(alliances), nil
}
