package navigation

import (
	"fmt"

	"github.com/arquest/waypoint/internal/geo"
)

// Advance returns the index of the step the user is working toward.
//
// Only steps from prior onward are considered, so progress never regresses
// even when an already passed waypoint is geometrically closer. Among those,
// the closest step wins, with ties going to the lowest index. When that
// closest step is prior itself and it lies within advanceRadius, the user
// has reached it and the next step (if any) becomes current.
//
// The result is always in [prior, len(route.Steps)).
func Advance(route Route, prior int, loc geo.Point, advanceRadius float64) (int, error) {
	n := len(route.Steps)
	if n == 0 {
		return 0, fmt.Errorf("%w: step tracking without a route", ErrPreconditionViolation)
	}
	if prior < 0 || prior >= n {
		return 0, fmt.Errorf("%w: prior step %d outside route of %d steps", ErrPreconditionViolation, prior, n)
	}

	closestIdx := prior
	minDistance := geo.DistanceMeters(loc, route.Steps[prior].Location)

	for i := prior + 1; i < n; i++ {
		distance := geo.DistanceMeters(loc, route.Steps[i].Location)
		if distance < minDistance {
			minDistance = distance
			closestIdx = i
		}
	}

	if minDistance < advanceRadius && closestIdx == prior && prior < n-1 {
		return prior + 1, nil
	}

	return closestIdx, nil
}
