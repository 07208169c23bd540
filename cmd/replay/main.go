// Command replay drives a navigation session along a fetched route with
// simulated location and compass samples, logging every frame.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/arquest/waypoint/internal/app"
	"github.com/arquest/waypoint/internal/appconf"
	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/navigation"
	"github.com/arquest/waypoint/internal/routing"
	"github.com/arquest/waypoint/internal/simulate"
)

type options struct {
	configFile string
	envFile    string
	from       string
	to         string
	interval   time.Duration
	stride     float64
	jitter     float64
	seed       int64
	geoJSON    string
	offline    bool
}

func main() {
	var opts options
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flags.StringVar(&opts.configFile, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file loaded into the environment")
	flags.StringVar(&opts.from, "from", "", "Start position as lat,lng (required)")
	flags.StringVar(&opts.to, "to", "", "Destination as lat,lng (defaults to the configured destination)")
	flags.DurationVar(&opts.interval, "interval", 200*time.Millisecond, "Time between simulated samples")
	flags.Float64Var(&opts.stride, "stride", 10, "Meters travelled between samples")
	flags.Float64Var(&opts.jitter, "jitter", 5, "Compass noise in degrees")
	flags.Int64Var(&opts.seed, "seed", 1, "Seed for the compass noise")
	flags.StringVar(&opts.geoJSON, "geojson", "", "Write the route as GeoJSON to this file")
	flags.BoolVar(&opts.offline, "offline", false, "Skip the routing services and walk straight to the destination")
	appconf.RegisterFlags(flags)
	_ = flags.Parse(os.Args[1:])

	loader, err := appconf.NewLoader(opts.configFile, opts.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	loader.ApplyFlags(flags)
	cfg, err := loader.Config()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewStructuredLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logging.LogError(logger, "replay failed", err)
		os.Exit(1)
	}
}

// parsePoint reads "lat,lng".
func parsePoint(s string) (geo.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("expected lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("longitude %q: %w", parts[1], err)
	}
	p := geo.Point{Lat: lat, Lng: lng}
	return p, geo.Validate(p)
}

// fixedRouter hands the session a route fetched ahead of time.
type fixedRouter struct {
	route navigation.Route
}

func (r fixedRouter) GetRoute(context.Context, geo.Point, geo.Point) (navigation.Route, error) {
	return r.route, nil
}

// frameLogger logs frames and reports arrival.
type frameLogger struct {
	logger  *slog.Logger
	arrived chan struct{}
}

func newFrameLogger(logger *slog.Logger) *frameLogger {
	return &frameLogger{logger: logger, arrived: make(chan struct{})}
}

func (f *frameLogger) Publish(frame navigation.Frame) {
	f.logger.Info("frame",
		slog.Uint64("sequence", frame.Sequence),
		slog.String("phase", frame.PhaseName),
		slog.String("instruction", frame.Instruction),
		slog.String("direction", string(frame.Direction.Label)),
		slog.Float64("angle", frame.Direction.Angle),
		slog.String("distance", frame.DistanceText),
		slog.String("status", frame.Status))
}

func (f *frameLogger) Arrived(frame navigation.Frame) {
	f.logger.Info("arrived", slog.String("instruction", frame.Instruction))
	close(f.arrived)
}

func fetchRoute(ctx context.Context, cfg appconf.Config, opts options, origin geo.Point, dest navigation.Destination, logger *slog.Logger) (navigation.Route, error) {
	if opts.offline {
		return navigation.DirectRoute(origin, dest), nil
	}
	router, err := app.NewRouter(cfg.Routing, logging.Component(logger, "routing"))
	if err != nil {
		return navigation.Route{}, err
	}
	route, err := router.GetRoute(ctx, origin, dest.Point)
	if err != nil {
		if !cfg.Navigation.FallbackRoute {
			return navigation.Route{}, err
		}
		logger.Warn("routing failed, walking straight to the destination", slog.String("error", err.Error()))
		return navigation.DirectRoute(origin, dest), nil
	}
	return route, nil
}

func writeGeoJSON(path string, route navigation.Route) error {
	b, err := routing.PathGeoJSON(&route).MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func run(ctx context.Context, cfg appconf.Config, opts options, logger *slog.Logger) error {
	if opts.from == "" {
		return errors.New("-from is required")
	}
	origin, err := parsePoint(opts.from)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	dest := cfg.Destination
	if opts.to != "" {
		p, err := parsePoint(opts.to)
		if err != nil {
			return fmt.Errorf("-to: %w", err)
		}
		dest = navigation.Destination{Point: p}
	}

	route, err := fetchRoute(ctx, cfg, opts, origin, dest, logger)
	if err != nil {
		return err
	}
	logger.Info("route ready",
		slog.String("provider", route.Provider),
		slog.Int("steps", route.Len()),
		slog.String("distance", navigation.FormatTotalDistance(route.TotalDistanceMeters)))

	if opts.geoJSON != "" {
		if err := writeGeoJSON(opts.geoJSON, route); err != nil {
			return fmt.Errorf("writing geojson: %w", err)
		}
	}

	walker, err := simulate.NewWalker(route.Path(),
		simulate.WithInterval(opts.interval),
		simulate.WithStride(opts.stride),
		simulate.WithHeadingJitter(opts.jitter, opts.seed))
	if err != nil {
		return err
	}

	sink := newFrameLogger(logger)
	session := navigation.NewSession(uuid.NewString(), cfg.Navigation, dest, walker, walker, fixedRouter{route: route},
		navigation.WithSink(sink),
		navigation.WithLogger(logging.Component(logger, "navigation")))
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	timeout := time.NewTimer(walker.Duration() + 5*time.Second)
	defer timeout.Stop()

	select {
	case <-sink.arrived:
		return nil
	case <-ctx.Done():
		return nil
	case <-timeout.C:
		return fmt.Errorf("did not arrive within %v", walker.Duration()+5*time.Second)
	}
}
