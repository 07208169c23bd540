package navigation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arquest/waypoint/internal/geo"
)

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		angle    float64
		expected Label
	}{
		{0, LabelStraight},
		{90, LabelRight},
		{-90, LabelLeft},
		{180, LabelTurnAround},
		{-180, LabelTurnAround},

		{15, LabelStraight},
		{15.01, LabelSlightRight},
		{45, LabelSlightRight},
		{45.01, LabelRight},
		{135, LabelRight},
		{135.01, LabelTurnAround},

		{-15, LabelStraight},
		{-15.01, LabelSlightLeft},
		{-45, LabelSlightLeft},
		{-45.01, LabelLeft},
		{-134.99, LabelLeft},
		{-135, LabelTurnAround},

		{360, LabelStraight},
		{450, LabelRight},
		{-270, LabelRight},
		{math.NaN(), LabelStraight},
	}

	for _, tt := range tests {
		got := Classify(tt.angle, ManeuverStraight)
		assert.Equal(t, tt.expected, got.Label, "angle %v", tt.angle)
		assert.Equal(t, tt.expected.Text(), got.Text, "angle %v", tt.angle)
	}
}

func TestClassifyRotationAgreesWithLabel(t *testing.T) {
	for deg := -720.0; deg <= 720; deg += 0.5 {
		d := Classify(deg, ManeuverStraight)

		assert.InDelta(t, -d.Angle, d.Rotation, 1e-9, "angle %v", deg)
		assert.Greater(t, d.Angle, -180.0)
		assert.LessOrEqual(t, d.Angle, 180.0)

		switch d.Label {
		case LabelStraight:
			assert.Equal(t, SideNone, d.Side, "angle %v", deg)
		case LabelSlightRight, LabelRight:
			assert.Equal(t, SideRight, d.Side, "angle %v", deg)
			assert.Less(t, d.Rotation, 0.0, "angle %v", deg)
		case LabelSlightLeft, LabelLeft:
			assert.Equal(t, SideLeft, d.Side, "angle %v", deg)
			assert.Greater(t, d.Rotation, 0.0, "angle %v", deg)
		case LabelTurnAround:
			assert.NotEqual(t, SideNone, d.Side, "angle %v", deg)
		}
		if d.Side == SideRight {
			assert.Less(t, d.Rotation, 0.0, "angle %v", deg)
		}
		if d.Side == SideLeft {
			assert.Greater(t, d.Rotation, 0.0, "angle %v", deg)
		}
	}
}

func TestClassifyArriveOverridesLabel(t *testing.T) {
	for _, angle := range []float64{0, 30, 90, -100, 180} {
		d := Classify(angle, ManeuverArrive)
		assert.Equal(t, LabelArrive, d.Label)
		assert.Equal(t, "Arrive at Destination", d.Text)
		assert.InDelta(t, -geo.NormalizeRelative(angle), d.Rotation, 1e-9)
	}
}

func TestClassifyStraightHasNoNegativeZero(t *testing.T) {
	d := Classify(0, ManeuverStraight)
	assert.False(t, math.Signbit(d.Rotation))
}

func TestRelativeAngle(t *testing.T) {
	assert.InDelta(t, 20, RelativeAngle(10, 350), 1e-9)
	assert.InDelta(t, -20, RelativeAngle(350, 10), 1e-9)
	assert.InDelta(t, 180, RelativeAngle(180, 0), 1e-9)
	assert.InDelta(t, 90, RelativeAngle(90, 0), 1e-9)
}
