package navigation

import (
	"fmt"

	"github.com/arquest/waypoint/internal/geo"
)

// Phase is the lifecycle stage of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLocating
	PhaseRouteRequested
	PhaseNavigating
	PhaseArrived
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLocating:
		return "locating"
	case PhaseRouteRequested:
		return "route_requested"
	case PhaseNavigating:
		return "navigating"
	case PhaseArrived:
		return "arrived"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText renders the phase by name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is an immutable snapshot of a session.
type State struct {
	Phase            Phase      `json:"phase"`
	CurrentLocation  *geo.Point `json:"currentLocation,omitempty"`
	SmoothedHeading  float64    `json:"smoothedHeading"`
	CurrentStepIndex int        `json:"currentStepIndex"`
	IsNavigating     bool       `json:"isNavigating"`
	HasArrived       bool       `json:"hasArrived"`
	Route            *Route     `json:"route,omitempty"`
}

// CurrentStep returns the step being worked toward, if navigating.
func (s State) CurrentStep() (Step, bool) {
	if s.Route == nil || s.CurrentStepIndex >= len(s.Route.Steps) {
		return Step{}, false
	}
	return s.Route.Steps[s.CurrentStepIndex], true
}

// StatusLevel tells the render sink how to present Frame.Status.
type StatusLevel string

const (
	StatusInfo  StatusLevel = "info"
	StatusError StatusLevel = "error"
)

// Frame is what the render sink draws after every recompute.
type Frame struct {
	Instruction       string      `json:"instruction" msgpack:"instruction"`
	Direction         Direction   `json:"direction" msgpack:"direction"`
	DistanceToStep    float64     `json:"distanceToStep" msgpack:"distanceToStep"`
	DistanceText      string      `json:"distanceText" msgpack:"distanceText"`
	TotalDistanceText string      `json:"totalDistanceText,omitempty" msgpack:"totalDistanceText,omitempty"`
	StepIndex         int         `json:"stepIndex" msgpack:"stepIndex"`
	TotalSteps        int         `json:"totalSteps" msgpack:"totalSteps"`
	Arrived           bool        `json:"arrived" msgpack:"arrived"`
	Phase             Phase       `json:"phase" msgpack:"-"`
	PhaseName         string      `json:"-" msgpack:"phase"`
	Status            string      `json:"status,omitempty" msgpack:"status,omitempty"`
	StatusLevel       StatusLevel `json:"statusLevel,omitempty" msgpack:"statusLevel,omitempty"`
	Sequence          uint64      `json:"sequence" msgpack:"sequence"`
}
