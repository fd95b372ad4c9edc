package universe

import (
	"starmap/pkg/geometry"
)

// BodyKind identifies the type of an object inside a local system.
type BodyKind int

const (
	BodyStar BodyKind = iota
	BodyPlanet
	BodyMoon
	BodyBelt
	BodyStation
	BodyGate
)

var bodyKindNames = map[string]BodyKind{
	"star":    BodyStar,
	"planet":  BodyPlanet,
	"moon":    BodyMoon,
	"belt":    BodyBelt,
	"station": BodyStation,
	"gate":    BodyGate,
}

// ParseBodyKind maps a record kind string to a BodyKind.
func ParseBodyKind(s string) (BodyKind, bool) {
	k, ok := bodyKindNames[s]
	return k, ok
}

// String returns the record name of the kind.
func (k BodyKind) String() string {
	switch k {
	case BodyStar:
		return "star"
	case BodyPlanet:
		return "planet"
	case BodyMoon:
		return "moon"
	case BodyBelt:
		return "belt"
	case BodyStation:
		return "station"
	case BodyGate:
		return "gate"
	}
	return "unknown"
}

// Body is a point object inside a local system view.
type Body struct {
	ID            int64
	Kind          BodyKind
	Name          string
	Position      geometry.Point2D // local coordinates, star at the origin
	ImageID       int64            // icon identifier, zero if none
	DestinationID int64            // gates only: the system on the other side
}

// LocalSystem is the entity set shown by a local view: one central star plus
// orbiting bodies.
type LocalSystem struct {
	SystemID int64
	Name     string
	Star     Body
	Bodies   []Body
}

// All returns the star followed by every body, in draw order.
func (s *LocalSystem) All() []Body {
	out := make([]Body, 0, len(s.Bodies)+1)
	out = append(out, s.Star)
	return append(out, s.Bodies...)
}
