package navigation

import (
	"math"

	"github.com/arquest/waypoint/internal/geo"
)

// Label is the discrete instruction shown next to the direction indicator.
type Label string

const (
	LabelStraight    Label = "straight"
	LabelSlightRight Label = "slight-right"
	LabelRight       Label = "right"
	LabelTurnAround  Label = "turn-around"
	LabelLeft        Label = "left"
	LabelSlightLeft  Label = "slight-left"
	LabelArrive      Label = "arrive"
)

var labelText = map[Label]string{
	LabelStraight:    "Continue Straight",
	LabelSlightRight: "Turn Slight Right",
	LabelRight:       "Turn Right",
	LabelTurnAround:  "Turn Around",
	LabelLeft:        "Turn Left",
	LabelSlightLeft:  "Turn Slight Left",
	LabelArrive:      "Arrive at Destination",
}

// Text returns the human readable instruction for l.
func (l Label) Text() string {
	if text, ok := labelText[l]; ok {
		return text
	}
	return labelText[LabelStraight]
}

// Side is the side of the user the target lies on.
type Side string

const (
	SideNone  Side = "none"
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Direction is the classified cue for one relative angle.
//
// Angle is the relative bearing in (-180,180], positive to the right.
// Rotation is the indicator rotation in degrees and is always -Angle, so a
// target on the right gives a negative rotation. Label and Rotation are
// derived from the same Angle and therefore agree on Side.
type Direction struct {
	Label    Label   `json:"label" msgpack:"label"`
	Text     string  `json:"text" msgpack:"text"`
	Angle    float64 `json:"angle" msgpack:"angle"`
	Rotation float64 `json:"rotation" msgpack:"rotation"`
	Side     Side    `json:"side" msgpack:"side"`
}

// RelativeAngle returns targetBearing - heading in (-180,180].
func RelativeAngle(targetBearing, heading float64) float64 {
	return geo.NormalizeRelative(targetBearing - heading)
}

// Classify maps a relative angle (any real value) to a Direction.
//
// Sectors, mirrored between the two sides:
//
//	[-15, 15]               straight
//	(15, 45]   / [-45, -15) slight right / slight left
//	(45, 135]  / (-135,-45) right / left
//	(135, 180] / (-180,-135] turn around
//
// An arrive maneuver replaces the label but keeps the rotation.
func Classify(relativeAngle float64, maneuver ManeuverKind) Direction {
	theta := geo.NormalizeRelative(relativeAngle)

	var label Label
	switch {
	case theta >= -15 && theta <= 15:
		label = LabelStraight
	case theta > 15 && theta <= 45:
		label = LabelSlightRight
	case theta > 45 && theta <= 135:
		label = LabelRight
	case theta > 135 || theta <= -135:
		label = LabelTurnAround
	case theta < -45:
		label = LabelLeft
	default:
		label = LabelSlightLeft
	}

	side := SideNone
	if label != LabelStraight {
		if theta > 0 {
			side = SideRight
		} else {
			side = SideLeft
		}
	}

	if maneuver == ManeuverArrive {
		label = LabelArrive
	}

	rotation := -theta
	if rotation == 0 {
		// Avoid reporting -0.
		rotation = math.Abs(rotation)
	}

	return Direction{
		Label:    label,
		Text:     label.Text(),
		Angle:    theta,
		Rotation: rotation,
		Side:     side,
	}
}
