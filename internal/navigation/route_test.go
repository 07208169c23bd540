package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManeuverInstruction(t *testing.T) {
	tests := []struct {
		maneuver ManeuverKind
		expected string
	}{
		{ManeuverTurnRight, "Turn right"},
		{ManeuverTurnSharpLeft, "Turn sharp left"},
		{ManeuverSlightRight, "Turn slight right"},
		{ManeuverStraight, "Continue straight"},
		{ManeuverArrive, "Arrive at destination"},
		{ManeuverUnknown, "Continue"},
		{ParseManeuver("roundabout"), "Continue"},
	}

	for _, tt := range tests {
		t.Run(string(tt.maneuver), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.maneuver.Instruction())
		})
	}
}

func TestParseManeuver(t *testing.T) {
	assert.Equal(t, ManeuverTurnLeft, ParseManeuver("turn-left"))
	assert.Equal(t, ManeuverUnknown, ParseManeuver(""))
	assert.Equal(t, ManeuverUnknown, ParseManeuver("fork"))
}

func TestDirectRoute(t *testing.T) {
	route := DirectRoute(testOrigin, Destination{Point: testDestination.Point})

	require.Len(t, route.Steps, 1)
	assert.Equal(t, "Head towards your destination", route.Steps[0].Instruction)
	assert.Equal(t, ManeuverStraight, route.Steps[0].Maneuver)
	assert.InDelta(t, 14.85, route.TotalDistanceMeters, 0.1)
	assert.True(t, route.Fallback)
	assert.Equal(t, 0, route.LastIndex())
	assert.Len(t, route.Path(), 2)
}

func TestRouteNilSafe(t *testing.T) {
	var route *Route
	assert.Equal(t, 0, route.Len())
	assert.Equal(t, -1, route.LastIndex())
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "In 0 meters", FormatDistance(0.2))
	assert.Equal(t, "In 15 meters", FormatDistance(14.6))
	assert.Equal(t, "In 999 meters", FormatDistance(999.4))
	assert.Equal(t, "In 1.0 km", FormatDistance(1000))
	assert.Equal(t, "In 2.5 km", FormatDistance(2460))
	assert.Equal(t, "Total distance: 3.2 km", FormatTotalDistance(3210))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := Config{SmoothingWindow: 0, ArrivalRadiusMeters: -1, StepAdvanceRadiusMeters: 0}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smoothing window")
	assert.Contains(t, err.Error(), "arrival radius")
	assert.Contains(t, err.Error(), "step advance radius")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "route_requested", PhaseRouteRequested.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
	text, err := PhaseArrived.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "arrived", string(text))
}
