package navigation

import (
	"fmt"

	"github.com/arquest/waypoint/internal/geo"
)

// ManeuverKind is the kind of turn a step begins with.
type ManeuverKind string

const (
	ManeuverStraight       ManeuverKind = "straight"
	ManeuverTurnLeft       ManeuverKind = "turn-left"
	ManeuverTurnRight      ManeuverKind = "turn-right"
	ManeuverTurnSharpLeft  ManeuverKind = "turn-sharp-left"
	ManeuverTurnSharpRight ManeuverKind = "turn-sharp-right"
	ManeuverSlightLeft     ManeuverKind = "turn-slight-left"
	ManeuverSlightRight    ManeuverKind = "turn-slight-right"
	ManeuverArrive         ManeuverKind = "arrive"
	ManeuverUnknown        ManeuverKind = "unknown"
)

var maneuverInstructions = map[ManeuverKind]string{
	ManeuverTurnRight:      "Turn right",
	ManeuverTurnLeft:       "Turn left",
	ManeuverTurnSharpRight: "Turn sharp right",
	ManeuverTurnSharpLeft:  "Turn sharp left",
	ManeuverSlightRight:    "Turn slight right",
	ManeuverSlightLeft:     "Turn slight left",
	ManeuverStraight:       "Continue straight",
	ManeuverArrive:         "Arrive at destination",
}

// ParseManeuver maps a maneuver string onto a ManeuverKind, returning
// ManeuverUnknown for anything unrecognized.
func ParseManeuver(s string) ManeuverKind {
	k := ManeuverKind(s)
	if _, ok := maneuverInstructions[k]; ok {
		return k
	}
	return ManeuverUnknown
}

// Instruction returns the default spoken/displayed text for a maneuver.
func (k ManeuverKind) Instruction() string {
	if text, ok := maneuverInstructions[k]; ok {
		return text
	}
	return "Continue"
}

// Step is one maneuver point of a route.
type Step struct {
	Instruction    string       `json:"instruction" msgpack:"instruction"`
	DistanceMeters float64      `json:"distanceMeters" msgpack:"distanceMeters"`
	Location       geo.Point    `json:"location" msgpack:"location"`
	Maneuver       ManeuverKind `json:"maneuver" msgpack:"maneuver"`
	Name           string       `json:"name,omitempty" msgpack:"name,omitempty"`
}

// Route is an ordered, immutable list of steps toward a destination.
// Geometry is the full path when the provider returned one.
type Route struct {
	Steps                []Step      `json:"steps"`
	TotalDistanceMeters  float64     `json:"totalDistanceMeters"`
	TotalDurationSeconds float64     `json:"totalDurationSeconds,omitempty"`
	Geometry             []geo.Point `json:"-"`
	Provider             string      `json:"provider,omitempty"`
	Fallback             bool        `json:"fallback,omitempty"`
}

// Len returns the number of steps.
func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Steps)
}

// LastIndex returns the index of the final step, or -1 for an empty route.
func (r *Route) LastIndex() int {
	return r.Len() - 1
}

// Path returns the geometry if present, otherwise the step locations in order.
func (r *Route) Path() []geo.Point {
	if len(r.Geometry) > 0 {
		return r.Geometry
	}
	path := make([]geo.Point, 0, len(r.Steps))
	for _, s := range r.Steps {
		path = append(path, s.Location)
	}
	return path
}

// DirectRoute builds the single-step route used when routing fails: head
// straight for the destination.
func DirectRoute(origin geo.Point, dest Destination) Route {
	d := geo.DistanceMeters(origin, dest.Point)
	return Route{
		Steps: []Step{
			{
				Instruction:    fmt.Sprintf("Head towards %s", dest.DisplayName()),
				DistanceMeters: d,
				Location:       dest.Point,
				Maneuver:       ManeuverStraight,
			},
		},
		TotalDistanceMeters: d,
		Geometry:            []geo.Point{origin, dest.Point},
		Provider:            "direct",
		Fallback:            true,
	}
}
