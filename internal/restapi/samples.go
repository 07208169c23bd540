package restapi

import (
	"math"
	"time"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/heading"
	"github.com/arquest/waypoint/internal/navigation"
)

// pointInput is a coordinate as posted by clients. Pointers tell a missing
// field apart from a zero one.
type pointInput struct {
	Lat *float64 `json:"lat" msgpack:"lat"`
	Lng *float64 `json:"lng" msgpack:"lng"`
}

// point validates p and returns field errors keyed with prefix.
func (p pointInput) point(prefix string) (geo.Point, map[string][]string) {
	fieldErrors := make(map[string][]string)
	if p.Lat == nil {
		fieldErrors[prefix+"lat"] = append(fieldErrors[prefix+"lat"], "lat is required")
	}
	if p.Lng == nil {
		fieldErrors[prefix+"lng"] = append(fieldErrors[prefix+"lng"], "lng is required")
	}
	if len(fieldErrors) > 0 {
		return geo.Point{}, fieldErrors
	}
	pt := geo.Point{Lat: *p.Lat, Lng: *p.Lng}
	return pt, geo.FieldErrors(prefix, pt)
}

type locationInput struct {
	pointInput
	Accuracy float64 `json:"accuracy" msgpack:"accuracy"`
}

func (in locationInput) fix(now time.Time) (navigation.LocationFix, map[string][]string) {
	pt, fieldErrors := in.point("")
	if len(fieldErrors) > 0 {
		return navigation.LocationFix{}, fieldErrors
	}
	return navigation.LocationFix{Point: pt, Accuracy: in.Accuracy, CapturedAt: now}, nil
}

// headingInput carries either a compass heading (clockwise from north) or
// the raw device orientation alpha (counter-clockwise). The compass heading
// wins when both are present.
type headingInput struct {
	Heading *float64 `json:"heading" msgpack:"heading"`
	Alpha   *float64 `json:"alpha" msgpack:"alpha"`
}

func (in headingInput) sample(now time.Time) (heading.Sample, map[string][]string) {
	fieldErrors := make(map[string][]string)
	for name, v := range map[string]*float64{"heading": in.Heading, "alpha": in.Alpha} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			fieldErrors[name] = append(fieldErrors[name], name+" must be a finite number")
		}
	}
	if len(fieldErrors) > 0 {
		return heading.Sample{}, fieldErrors
	}

	switch {
	case in.Heading != nil:
		return heading.NewSample(geo.NormalizeHeading(*in.Heading), now), nil
	case in.Alpha != nil:
		return heading.NewSample(geo.NormalizeHeading(360-*in.Alpha), now), nil
	default:
		// An absent reading is forwarded and ignored by the session.
		return heading.Sample{CapturedAt: now}, nil
	}
}
