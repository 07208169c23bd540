package navigation

import (
	"context"
	"time"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/heading"
)

// LocationFix is one reading from the location provider. Accuracy and
// CapturedAt are informational; Err marks a transient per-sample failure.
type LocationFix struct {
	Point      geo.Point
	Accuracy   float64
	CapturedAt time.Time
	Err        error
}

// LocationProvider supplies positions. CurrentLocation should wrap
// ErrLocationUnavailable when positioning is denied or missing.
// The subscription channel is owned by the provider and must stop being
// written once ctx is done.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (geo.Point, error)
	SubscribeLocations(ctx context.Context) (<-chan LocationFix, error)
}

// HeadingProvider supplies raw compass samples until ctx is done.
type HeadingProvider interface {
	SubscribeHeadings(ctx context.Context) (<-chan heading.Sample, error)
}

// Router computes a route between two points. Failures should wrap ErrRouteUnavailable.
type Router interface {
	GetRoute(ctx context.Context, origin, destination geo.Point) (Route, error)
}

// RenderSink receives a frame after every recompute.
type RenderSink interface {
	Publish(Frame)
}

// ArrivalListener is implemented by sinks that want the one-time arrival notification.
type ArrivalListener interface {
	Arrived(Frame)
}

// RenderSinkFunc adapts a function to RenderSink.
type RenderSinkFunc func(Frame)

func (f RenderSinkFunc) Publish(frame Frame) { f(frame) }

type discardSink struct{}

func (discardSink) Publish(Frame) {}
