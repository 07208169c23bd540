package models

import (
	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/navigation"
)

// DestinationModel is the destination as sent to clients.
type DestinationModel struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// StateModel is a session snapshot without the route body.
type StateModel struct {
	Phase            string     `json:"phase"`
	CurrentLocation  *geo.Point `json:"currentLocation,omitempty"`
	SmoothedHeading  float64    `json:"smoothedHeading"`
	CurrentStepIndex int        `json:"currentStepIndex"`
	IsNavigating     bool       `json:"isNavigating"`
	HasArrived       bool       `json:"hasArrived"`
}

// RouteSummary describes the active route.
type RouteSummary struct {
	Provider             string            `json:"provider"`
	Fallback             bool              `json:"fallback"`
	TotalSteps           int               `json:"totalSteps"`
	TotalDistanceMeters  float64           `json:"totalDistanceMeters"`
	TotalDurationSeconds float64           `json:"totalDurationSeconds"`
	Steps                []navigation.Step `json:"steps"`
}

// SessionEntry is the entry returned by the session endpoints.
type SessionEntry struct {
	ID          string           `json:"id"`
	CreatedAt   int64            `json:"createdAt"`
	Token       string           `json:"token,omitempty"`
	ViewerToken string           `json:"viewerToken,omitempty"`
	Destination DestinationModel `json:"destination"`
	State       StateModel       `json:"state"`
	Frame       navigation.Frame `json:"frame"`
	Route       *RouteSummary    `json:"route,omitempty"`
}

// NewSessionEntry snapshots s for a response.
func NewSessionEntry(s *navigation.Session) SessionEntry {
	state := s.State()
	dest := s.Destination()

	entry := SessionEntry{
		ID:        s.ID(),
		CreatedAt: s.CreatedAt().UnixMilli(),
		Destination: DestinationModel{
			Name: dest.Name,
			Lat:  dest.Point.Lat,
			Lng:  dest.Point.Lng,
		},
		State: StateModel{
			Phase:            state.Phase.String(),
			CurrentLocation:  state.CurrentLocation,
			SmoothedHeading:  state.SmoothedHeading,
			CurrentStepIndex: state.CurrentStepIndex,
			IsNavigating:     state.IsNavigating,
			HasArrived:       state.HasArrived,
		},
		Frame: s.Frame(),
	}

	if state.Route != nil {
		entry.Route = &RouteSummary{
			Provider:             state.Route.Provider,
			Fallback:             state.Route.Fallback,
			TotalSteps:           state.Route.Len(),
			TotalDistanceMeters:  state.Route.TotalDistanceMeters,
			TotalDurationSeconds: state.Route.TotalDurationSeconds,
			Steps:                state.Route.Steps,
		}
	}
	return entry
}
