// Package overlay fetches time-varying ownership data layered on the map.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"starmap/internal/cluster"
)

// ErrUnavailable is returned when an overlay source cannot produce data.
var ErrUnavailable = errors.New("overlay unavailable")

// Kind names an overlay.
type Kind string

const (
	KindFaction  Kind = "faction"
	KindAlliance Kind = "alliance"
)

// KindFor returns the overlay a coloring mode depends on.
func KindFor(m cluster.Mode) (Kind, bool) {
	switch m {
	case cluster.ModeFaction:
		return KindFaction, true
	case cluster.ModeAlliance:
		return KindAlliance, true
	}
	return "", false
}

// Snapshot is one fetched overlay: entity id to owner id. A zero Snapshot
// means no data.
type Snapshot struct {
	Kind      Kind
	Owners    map[int64]int64
	FetchedAt time.Time
}

// Empty reports whether the snapshot carries no ownership.
func (s Snapshot) Empty() bool { return len(s.Owners) == 0 }

// Source produces the ownership mapping for one overlay kind.
type Source interface {
	Fetch(ctx context.Context) (map[int64]int64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (map[int64]int64, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context) (map[int64]int64, error) { return f(ctx) }

// sovereigntyEntry is one element of the sovereignty map endpoint.
type sovereigntyEntry struct {
	SystemID      int64 `json:"system_id"`
	FactionID     int64 `json:"faction_id"`
	AllianceID    int64 `json:"alliance_id"`
	CorporationID int64 `json:"corporation_id"`
}

// HTTPSource reads a JSON array of sovereignty entries and keeps the owner
// field matching its kind.
type HTTPSource struct {
	Client *http.Client
	URL    string
	Kind   Kind
}

// Fetch implements Source.
func (s HTTPSource) Fetch(ctx context.Context) (map[int64]int64, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", s.Kind, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s overlay: %w", s.Kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s overlay: status %d: %w", s.Kind, resp.StatusCode, ErrUnavailable)
	}

	var entries []sovereigntyEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode %s overlay: %w", s.Kind, err)
	}

	owners := make(map[int64]int64, len(entries))
	for _, e := range entries {
		owner := e.FactionID
		if s.Kind == KindAlliance {
			owner = e.AllianceID
		}
		if e.SystemID != 0 && owner != 0 {
			owners[e.SystemID] = owner
		}
	}
	return owners, nil
}
