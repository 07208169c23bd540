package geo

import (
	"errors"
	"math"

	"github.com/umahmood/haversine"
)

// EarthRadiusMeters is the mean Earth radius used by every calculation in this package.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in degrees, treated as lying on a sphere.
type Point struct {
	Lat float64 `json:"lat" msgpack:"lat"`
	Lng float64 `json:"lng" msgpack:"lng"`
}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lng},
		haversine.Coord{Lat: b.Lat, Lon: b.Lng},
	)
	return km * 1000
}

// InitialBearingDegrees returns the forward azimuth from a to b in [0,360).
// Identical points yield 0.
func InitialBearingDegrees(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaLng := (b.Lng - a.Lng) * math.Pi / 180

	y := math.Sin(deltaLng) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLng)

	// atan2(0, 0) is 0 in Go, so a == b stays finite.
	theta := math.Atan2(y, x)
	return NormalizeHeading(theta * 180 / math.Pi)
}

// Destination projects a point distanceMeters away from origin along bearing.
func Destination(origin Point, bearing, distanceMeters float64) Point {
	delta := distanceMeters / EarthRadiusMeters
	theta := bearing * math.Pi / 180
	phi1 := origin.Lat * math.Pi / 180
	lambda1 := origin.Lng * math.Pi / 180

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return Point{
		Lat: phi2 * 180 / math.Pi,
		Lng: math.Mod(lambda2*180/math.Pi+540, 360) - 180,
	}
}

// NormalizeHeading reduces h to [0,360).
func NormalizeHeading(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	// -1e-15 + 360 rounds to 360.
	if h >= 360 {
		h = 0
	}
	return h
}

// NormalizeRelative maps an angle difference into (-180,180].
func NormalizeRelative(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	if math.Abs(angle) > 3600 {
		angle = math.Mod(angle, 360)
	}
	for angle > 180 {
		angle -= 360
	}
	for angle <= -180 {
		angle += 360
	}
	return angle
}

// Compass converts a bearing to the closest 8-point compass direction.
func Compass(bearing float64) string {
	directions := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	index := int(NormalizeHeading(bearing+22.5) / 45.0)
	return directions[index%8]
}

var (
	errNotFinite = errors.New("coordinate must be a finite number")
	errLatRange  = errors.New("latitude must be between -90 and 90")
	errLngRange  = errors.New("longitude must be between -180 and 180")
)

// Validate reports whether p is usable by the distance and bearing functions.
func Validate(p Point) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return errNotFinite
	}
	if p.Lat < -90.0 || p.Lat > 90.0 {
		return errLatRange
	}
	if p.Lng < -180.0 || p.Lng > 180.0 {
		return errLngRange
	}
	return nil
}

// FieldErrors validates p and returns errors keyed by field name, in the shape
// the REST layer reports them.
func FieldErrors(prefix string, p Point) map[string][]string {
	fieldErrors := make(map[string][]string)
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90.0 || p.Lat > 90.0 {
		fieldErrors[prefix+"lat"] = append(fieldErrors[prefix+"lat"], errLatRange.Error())
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180.0 || p.Lng > 180.0 {
		fieldErrors[prefix+"lng"] = append(fieldErrors[prefix+"lng"], errLngRange.Error())
	}
	return fieldErrors
}
