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

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/navigation"
)

// GraphHopperClient fetches routes from the GraphHopper Directions API.
type GraphHopperClient struct {
	baseURL    string
	apiKey     string
	vehicle    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGraphHopperClient creates a client for baseURL, e.g. https://graphhopper.com.
func NewGraphHopperClient(baseURL, apiKey, vehicle string, timeout time.Duration, logger *slog.Logger) *GraphHopperClient {
	if vehicle == "" {
		vehicle = "car"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphHopperClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		vehicle:    vehicle,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "routing_graphhopper")),
	}
}

func (c *GraphHopperClient) Name() string { return "graphhopper" }

type graphHopperInstruction struct {
	Distance   float64 `json:"distance"`
	Sign       int     `json:"sign"`
	Interval   [2]int  `json:"interval"`
	Text       string  `json:"text"`
	StreetName string  `json:"street_name"`
}

type graphHopperResponse struct {
	Message string `json:"message"`
	Paths   []struct {
		Distance     float64                  `json:"distance"`
		Time         float64                  `json:"time"`
		Points       *geojson.Geometry        `json:"points"`
		Instructions []graphHopperInstruction `json:"instructions"`
	} `json:"paths"`
}

// GetRoute requests a route with instructions and unencoded GeoJSON points.
func (c *GraphHopperClient) GetRoute(ctx context.Context, origin, destination geo.Point) (navigation.Route, error) {
	start := time.Now()

	query := url.Values{}
	query.Add("point", fmt.Sprintf("%.6f,%.6f", origin.Lat, origin.Lng))
	query.Add("point", fmt.Sprintf("%.6f,%.6f", destination.Lat, destination.Lng))
	query.Set("vehicle", c.vehicle)
	query.Set("locale", "en")
	query.Set("instructions", "true")
	query.Set("points_encoded", "false")
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/1/route?"+query.Encode(), nil)
	if err != nil {
		return navigation.Route{}, fmt.Errorf("%w: graphhopper: %v", navigation.ErrRouteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return navigation.Route{}, fmt.Errorf("%w: graphhopper: %v", navigation.ErrRouteUnavailable, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "graphhopper_response_body")

	var parsed graphHopperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return navigation.Route{}, fmt.Errorf("%w: graphhopper: decode response: %v", navigation.ErrRouteUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return navigation.Route{}, fmt.Errorf("%w: graphhopper returned %d: %s",
			navigation.ErrRouteUnavailable, resp.StatusCode, parsed.Message)
	}
	if len(parsed.Paths) == 0 {
		return navigation.Route{}, fmt.Errorf("%w: graphhopper: no route found", navigation.ErrRouteUnavailable)
	}

	path := parsed.Paths[0]
	var line orb.LineString
	if path.Points != nil {
		if ls, ok := path.Points.Coordinates.(orb.LineString); ok {
			line = ls
		}
	}
	if len(line) == 0 {
		return navigation.Route{}, fmt.Errorf("%w: graphhopper: route has no points", navigation.ErrRouteUnavailable)
	}

	route := navigation.Route{
		TotalDistanceMeters:  path.Distance,
		TotalDurationSeconds: path.Time / 1000,
		Geometry:             make([]geo.Point, 0, len(line)),
		Provider:             c.Name(),
	}
	for _, p := range line {
		route.Geometry = append(route.Geometry, fromOrb(p))
	}

	for _, in := range path.Instructions {
		idx := in.Interval[0]
		if idx < 0 || idx >= len(line) {
			c.logger.Warn("skipping instruction with out of range interval",
				slog.Int("interval_start", idx),
				slog.Int("points", len(line)))
			continue
		}
		kind := graphHopperManeuverKind(in.Sign)
		text := in.Text
		if text == "" {
			text = kind.Instruction()
		}
		route.Steps = append(route.Steps, navigation.Step{
			Instruction:    text,
			DistanceMeters: in.Distance,
			Location:       fromOrb(line[idx]),
			Maneuver:       kind,
			Name:           in.StreetName,
		})
	}
	if len(route.Steps) == 0 {
		return navigation.Route{}, fmt.Errorf("%w: graphhopper: route has no instructions", navigation.ErrRouteUnavailable)
	}

	logging.LogOperation(c.logger, "graphhopper_route_fetched",
		slog.Int("steps", len(route.Steps)),
		slog.Float64("distance_m", route.TotalDistanceMeters),
		slog.Duration("duration", time.Since(start)))

	return route, nil
}

// graphHopperManeuverKind maps a GraphHopper instruction sign onto a ManeuverKind.
func graphHopperManeuverKind(sign int) navigation.ManeuverKind {
	switch sign {
	case -3, -8, -98:
		return navigation.ManeuverTurnSharpLeft
	case 3, 8:
		return navigation.ManeuverTurnSharpRight
	case -2:
		return navigation.ManeuverTurnLeft
	case 2:
		return navigation.ManeuverTurnRight
	case -1, -7:
		return navigation.ManeuverSlightLeft
	case 1, 7:
		return navigation.ManeuverSlightRight
	case 0, 5:
		return navigation.ManeuverStraight
	case 4:
		return navigation.ManeuverArrive
	default:
		return navigation.ManeuverUnknown
	}
}

// GeoJSON positions are [lng, lat].
func fromOrb(p orb.Point) geo.Point {
	return geo.Point{Lat: p.Lat(), Lng: p.Lon()}
}

// PathGeoJSON renders a route's path as a GeoJSON feature.
func PathGeoJSON(route *navigation.Route) *geojson.Feature {
	path := route.Path()
	line := make(orb.LineString, 0, len(path))
	for _, p := range path {
		line = append(line, orb.Point{p.Lng, p.Lat})
	}
	feature := geojson.NewFeature(line)
	feature.Properties["provider"] = route.Provider
	feature.Properties["distance"] = route.TotalDistanceMeters
	feature.Properties["steps"] = len(route.Steps)
	return feature
}
