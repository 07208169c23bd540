package navigation

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/heading"
	"github.com/arquest/waypoint/internal/logging"
)

var testDestination = Destination{
	Name:  "Temple",
	Point: geo.Point{Lat: 27.70010, Lng: 85.30010},
}

func newTestController(t *testing.T, cfg Config) (*Controller, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := logging.NewStructuredLogger(&buf, slog.LevelDebug)
	return NewController(cfg, testDestination, logger), &buf
}

// navigate drives c from Idle to Navigating on route from testOrigin.
func navigate(t *testing.T, c *Controller, route Route) Outcome {
	t.Helper()
	c.Begin()
	c.LocationResolved(testOrigin)
	out, err := c.RouteResolved(route, nil)
	require.NoError(t, err)
	require.Equal(t, PhaseNavigating, c.Phase())
	return out
}

func oneStepRoute() Route {
	return Route{
		Steps: []Step{{
			Instruction: "Arrive at destination",
			Location:    testDestination.Point,
			Maneuver:    ManeuverArrive,
		}},
		TotalDistanceMeters: geo.DistanceMeters(testOrigin, testDestination.Point),
		Provider:            "test",
	}
}

func headingSample(deg float64) heading.Sample {
	return heading.Sample{Degrees: &deg}
}

func TestControllerLifecycle(t *testing.T) {
	c, _ := newTestController(t, DefaultConfig())
	assert.Equal(t, PhaseIdle, c.Phase())

	out := c.Begin()
	assert.True(t, out.Recomputed)
	assert.Equal(t, PhaseLocating, out.Frame.Phase)
	assert.Equal(t, "Getting your location...", out.Frame.Status)

	out = c.LocationResolved(testOrigin)
	assert.Equal(t, PhaseRouteRequested, c.Phase())
	assert.Equal(t, "Calculating route to Temple...", out.Frame.Status)
	origin, ok := c.Origin()
	require.True(t, ok)
	assert.Equal(t, testOrigin, origin)

	route := straightRoute(testOrigin, 3, 100)
	out, err := c.RouteResolved(route, nil)
	require.NoError(t, err)
	assert.True(t, out.Recomputed)
	assert.Equal(t, "Navigating to Temple", out.Frame.Status)
	assert.Equal(t, 3, out.Frame.TotalSteps)
	assert.Equal(t, "Total distance: 0.2 km", out.Frame.TotalDistanceText)

	state := c.State()
	assert.Equal(t, PhaseNavigating, state.Phase)
	assert.True(t, state.IsNavigating)
	assert.False(t, state.HasArrived)
	assert.Equal(t, 0, state.CurrentStepIndex)
	require.NotNil(t, state.Route)
	require.NotNil(t, state.CurrentLocation)
	assert.Equal(t, testOrigin, *state.CurrentLocation)
}

func TestControllerArrivalScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArrivalRadiusMeters = 15
	c, _ := newTestController(t, cfg)

	navigate(t, c, oneStepRoute())
	assert.False(t, c.State().HasArrived)
	assert.InDelta(t, 0, c.State().SmoothedHeading, 1e-9)

	fix := geo.Destination(testDestination.Point, 180, 5)
	require.InDelta(t, 5, geo.DistanceMeters(fix, testDestination.Point), 0.01)

	out := c.UpdateLocation(fix)
	assert.True(t, out.Arrived)
	assert.True(t, out.Frame.Arrived)

	state := c.State()
	assert.Equal(t, 0, state.CurrentStepIndex)
	assert.True(t, state.HasArrived)
	assert.Equal(t, PhaseArrived, state.Phase)

	assert.Equal(t, LabelArrive, out.Frame.Direction.Label)
	assert.InDelta(t, 0, out.Frame.Direction.Angle, 0.01)
	assert.Equal(t, "Arrived at Temple!", out.Frame.Instruction)
	assert.Equal(t, "You have reached your destination", out.Frame.Direction.Text)
	assert.Equal(t, "You've arrived at Temple!", out.Frame.Status)
}

func TestControllerArrivalIsIdempotent(t *testing.T) {
	c, _ := newTestController(t, DefaultConfig())
	navigate(t, c, oneStepRoute())

	arrivals := 0
	for i := 0; i < 10; i++ {
		out := c.UpdateLocation(geo.Destination(testDestination.Point, float64(i*36), 3))
		if out.Arrived {
			arrivals++
		}
		assert.True(t, out.Frame.Arrived)
		assert.True(t, c.State().HasArrived)

		out = c.UpdateHeading(headingSample(float64(i * 40)))
		assert.False(t, out.Arrived)
		assert.True(t, out.Frame.Arrived)
	}
	assert.Equal(t, 1, arrivals)

	// Walking away again does not undo arrival.
	out := c.UpdateLocation(geo.Destination(testDestination.Point, 0, 500))
	assert.False(t, out.Arrived)
	assert.True(t, c.State().HasArrived)
	assert.Equal(t, PhaseArrived, c.Phase())
}

func TestControllerArrivesOnlyOnLastStep(t *testing.T) {
	// The destination sits at the first step, but the route still has two steps to go.
	c := NewController(DefaultConfig(), Destination{Name: "Loop", Point: testOrigin}, nil)
	navigate(t, c, straightRoute(testOrigin, 3, 100))

	out := c.UpdateLocation(geo.Destination(testOrigin, 0, 60))
	assert.False(t, out.Arrived)
	assert.False(t, c.State().HasArrived)
}

func TestControllerHeadingReclassifiesWithoutTracking(t *testing.T) {
	c, _ := newTestController(t, DefaultConfig())
	navigate(t, c, straightRoute(testOrigin, 3, 100))

	out := c.UpdateLocation(geo.Destination(testOrigin, 0, 40))
	require.Equal(t, 0, out.Frame.StepIndex)
	// Step zero is behind a user facing north.
	assert.Equal(t, LabelTurnAround, out.Frame.Direction.Label)

	out = c.UpdateHeading(headingSample(90))
	assert.True(t, out.Recomputed)
	// Smoothed heading is the circular mean of a single sample.
	assert.InDelta(t, 90, c.State().SmoothedHeading, 1e-9)
	assert.Equal(t, 0, out.Frame.StepIndex)
	// Target due south of a user facing east is on the right.
	assert.Equal(t, LabelRight, out.Frame.Direction.Label)
	assert.Equal(t, SideRight, out.Frame.Direction.Side)
	assert.InDelta(t, -90, out.Frame.Direction.Rotation, 0.01)
}

func TestControllerIgnoresAbsentHeading(t *testing.T) {
	c, _ := newTestController(t, DefaultConfig())
	navigate(t, c, straightRoute(testOrigin, 3, 100))
	c.UpdateHeading(headingSample(45))

	out := c.UpdateHeading(heading.Sample{})
	assert.False(t, out.Recomputed)
	assert.InDelta(t, 45, c.State().SmoothedHeading, 1e-9)
}

func TestControllerCachesInputsWhileRouting(t *testing.T) {
	c, _ := newTestController(t, DefaultConfig())
	c.Begin()
	c.LocationResolved(testOrigin)

	moved := geo.Destination(testOrigin, 0, 160)
	out := c.UpdateLocation(moved)
	assert.False(t, out.Recomputed)
	assert.Equal(t, testOrigin, *c.State().CurrentLocation)

	out = c.UpdateHeading(headingSample(10))
	assert.False(t, out.Recomputed)
	assert.InDelta(t, 10, c.State().SmoothedHeading, 1e-9)
	assert.Equal(t, PhaseRouteRequested, c.Phase())

	out, err := c.RouteResolved(straightRoute(testOrigin, 3, 100), nil)
	require.NoError(t, err)
	assert.Equal(t, moved, *c.State().CurrentLocation)
	assert.Equal(t, 2, c.State().CurrentStepIndex)
	assert.Equal(t, "Navigating to Temple", out.Frame.Status)
}

func TestControllerRouteFallback(t *testing.T) {
	c, buf := newTestController(t, DefaultConfig())
	c.Begin()
	c.LocationResolved(testOrigin)

	out, err := c.RouteResolved(Route{}, errors.New("connection refused"))
	require.NoError(t, err)

	state := c.State()
	assert.Equal(t, PhaseNavigating, state.Phase)
	require.NotNil(t, state.Route)
	assert.True(t, state.Route.Fallback)
	require.Len(t, state.Route.Steps, 1)
	assert.Equal(t, "Head towards Temple", state.Route.Steps[0].Instruction)
	assert.Equal(t, testDestination.Point, state.Route.Steps[0].Location)

	assert.Equal(t, "Route not found", out.Frame.Status)
	assert.Equal(t, StatusError, out.Frame.StatusLevel)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestControllerRouteFailureWithoutFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FallbackRoute = false
	c, buf := newTestController(t, cfg)
	c.Begin()
	c.LocationResolved(testOrigin)

	out, err := c.RouteResolved(Route{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRouteUnavailable)

	state := c.State()
	assert.Equal(t, PhaseStopped, state.Phase)
	assert.False(t, state.IsNavigating)
	assert.Nil(t, state.Route)
	assert.Equal(t, StatusError, out.Frame.StatusLevel)
	assert.Contains(t, out.Frame.Status, "Error: ")
	assert.Contains(t, buf.String(), `"msg":"route request failed"`)
}

func TestControllerLocationFailed(t *testing.T) {
	c, buf := newTestController(t, DefaultConfig())
	c.Begin()

	out := c.LocationFailed(ErrLocationUnavailable)
	assert.Equal(t, PhaseStopped, c.Phase())
	assert.Equal(t, "Error: location unavailable", out.Frame.Status)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestControllerStopIsIdempotent(t *testing.T) {
	c, _ := newTestController(t, DefaultConfig())
	navigate(t, c, straightRoute(testOrigin, 3, 100))
	c.UpdateLocation(geo.Destination(testOrigin, 0, 160))
	require.Equal(t, 2, c.State().CurrentStepIndex)

	out := c.Stop()
	assert.True(t, out.Recomputed)
	state := c.State()
	assert.Equal(t, PhaseStopped, state.Phase)
	assert.Nil(t, state.Route)
	assert.False(t, state.IsNavigating)
	assert.Equal(t, 0, state.CurrentStepIndex)

	out = c.Stop()
	assert.False(t, out.Recomputed)

	out = c.UpdateLocation(testOrigin)
	assert.False(t, out.Recomputed)
	out = c.UpdateHeading(headingSample(90))
	assert.False(t, out.Recomputed)
	assert.Equal(t, PhaseStopped, c.Phase())
}

func TestControllerIgnoresInvalidLocation(t *testing.T) {
	c, buf := newTestController(t, DefaultConfig())
	navigate(t, c, straightRoute(testOrigin, 3, 100))
	before := c.Frame()

	out := c.UpdateLocation(geo.Point{Lat: 123, Lng: 0})
	assert.False(t, out.Recomputed)
	assert.Equal(t, before, c.Frame())
	assert.Equal(t, testOrigin, *c.State().CurrentLocation)
	assert.Contains(t, buf.String(), `"msg":"ignoring invalid location"`)
}

func TestControllerStepIndexNeverDecreases(t *testing.T) {
	c, _ := newTestController(t, DefaultConfig())
	navigate(t, c, straightRoute(testOrigin, 6, 80))
	rng := rand.New(rand.NewSource(7))

	last := 0
	for i := 0; i < 300 && c.Phase() == PhaseNavigating; i++ {
		c.UpdateLocation(geo.Destination(testOrigin, rng.Float64()*360, rng.Float64()*500))
		idx := c.State().CurrentStepIndex
		require.GreaterOrEqual(t, idx, last)
		last = idx
	}
}

func TestControllerSequenceIncreases(t *testing.T) {
	c, _ := newTestController(t, DefaultConfig())
	first := c.Begin().Frame.Sequence
	second := c.LocationResolved(testOrigin).Frame.Sequence
	assert.Greater(t, second, first)
}
