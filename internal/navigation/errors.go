package navigation

import "errors"

var (
	// ErrLocationUnavailable means the platform denied or lacks positioning. Fatal to session start.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrRouteUnavailable means the routing service failed or returned no path.
	ErrRouteUnavailable = errors.New("route unavailable")

	// ErrPreconditionViolation marks a programming error, e.g. tracking against an empty route.
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrSessionNotFound is returned by Manager lookups for unknown IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionStarted is returned when Start is called twice.
	ErrSessionStarted = errors.New("session already started")
)
