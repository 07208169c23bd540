// Package routing implements navigation.Router against public routing
// services, plus a provider chain and a route cache.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/navigation"
)

// DefaultTimeout bounds a single routing request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// OSRMClient fetches routes from an OSRM server.
type OSRMClient struct {
	baseURL    string
	profile    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOSRMClient creates a client for baseURL, e.g. https://router.project-osrm.org.
func NewOSRMClient(baseURL, profile string, timeout time.Duration, logger *slog.Logger) *OSRMClient {
	if profile == "" {
		profile = "driving"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OSRMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    profile,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "routing_osrm")),
	}
}

func (c *OSRMClient) Name() string { return "osrm" }

type osrmManeuver struct {
	Type        string     `json:"type"`
	Modifier    string     `json:"modifier"`
	Location    [2]float64 `json:"location"`
	Instruction string     `json:"instruction"`
}

type osrmStep struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Name     string       `json:"name"`
	Geometry string       `json:"geometry"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
		Legs     []struct {
			Steps []osrmStep `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// GetRoute requests a route with turn-by-turn steps and full polyline geometry.
func (c *OSRMClient) GetRoute(ctx context.Context, origin, destination geo.Point) (navigation.Route, error) {
	start := time.Now()

	query := url.Values{}
	query.Set("steps", "true")
	query.Set("overview", "full")
	query.Set("geometries", "polyline")
	endpoint := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?%s",
		c.baseURL, c.profile, origin.Lng, origin.Lat, destination.Lng, destination.Lat, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return navigation.Route{}, fmt.Errorf("%w: osrm: %v", navigation.ErrRouteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return navigation.Route{}, fmt.Errorf("%w: osrm: %v", navigation.ErrRouteUnavailable, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "osrm_response_body")

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return navigation.Route{}, fmt.Errorf("%w: osrm: decode response: %v", navigation.ErrRouteUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK || (parsed.Code != "" && parsed.Code != "Ok") {
		return navigation.Route{}, fmt.Errorf("%w: osrm returned %d %s %s",
			navigation.ErrRouteUnavailable, resp.StatusCode, parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 || len(parsed.Routes[0].Legs) == 0 {
		return navigation.Route{}, fmt.Errorf("%w: osrm: no route found", navigation.ErrRouteUnavailable)
	}

	best := parsed.Routes[0]
	route := navigation.Route{
		TotalDistanceMeters:  best.Distance,
		TotalDurationSeconds: best.Duration,
		Provider:             c.Name(),
	}
	for _, leg := range best.Legs {
		for _, s := range leg.Steps {
			route.Steps = append(route.Steps, osrmToStep(s))
		}
	}
	if len(route.Steps) == 0 {
		return navigation.Route{}, fmt.Errorf("%w: osrm: route has no steps", navigation.ErrRouteUnavailable)
	}

	if best.Geometry != "" {
		geometry, err := decodePolyline(best.Geometry)
		if err != nil {
			c.logger.Warn("discarding undecodable route geometry", slog.String("error", err.Error()))
		} else {
			route.Geometry = geometry
		}
	}

	logging.LogOperation(c.logger, "osrm_route_fetched",
		slog.Int("steps", len(route.Steps)),
		slog.Float64("distance_m", route.TotalDistanceMeters),
		slog.Duration("duration", time.Since(start)))

	return route, nil
}

func osrmToStep(s osrmStep) navigation.Step {
	kind := osrmManeuverKind(s.Maneuver.Type, s.Maneuver.Modifier)
	instruction := s.Maneuver.Instruction
	if instruction == "" {
		instruction = kind.Instruction()
		if s.Name != "" && kind != navigation.ManeuverArrive {
			instruction += " onto " + s.Name
		}
	}
	return navigation.Step{
		Instruction:    instruction,
		DistanceMeters: s.Distance,
		// OSRM locations are [lng, lat].
		Location: geo.Point{Lat: s.Maneuver.Location[1], Lng: s.Maneuver.Location[0]},
		Maneuver: kind,
		Name:     s.Name,
	}
}

// osrmManeuverKind maps an OSRM maneuver type and modifier onto a ManeuverKind.
func osrmManeuverKind(maneuverType, modifier string) navigation.ManeuverKind {
	switch maneuverType {
	case "arrive":
		return navigation.ManeuverArrive
	case "depart":
		return navigation.ManeuverStraight
	}

	switch modifier {
	case "left":
		return navigation.ManeuverTurnLeft
	case "right":
		return navigation.ManeuverTurnRight
	case "sharp left", "uturn":
		return navigation.ManeuverTurnSharpLeft
	case "sharp right":
		return navigation.ManeuverTurnSharpRight
	case "slight left":
		return navigation.ManeuverSlightLeft
	case "slight right":
		return navigation.ManeuverSlightRight
	case "straight":
		return navigation.ManeuverStraight
	}

	if maneuverType == "continue" || maneuverType == "new name" {
		return navigation.ManeuverStraight
	}
	return navigation.ParseManeuver(maneuverType)
}

func decodePolyline(encoded string) ([]geo.Point, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	points := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		points = append(points, geo.Point{Lat: c[0], Lng: c[1]})
	}
	return points, nil
}

// EncodePath encodes points as a Google polyline with precision 5.
func EncodePath(points []geo.Point) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}
