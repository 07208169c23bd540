package app

import (
	"log/slog"
	"sync"

	"github.com/arquest/waypoint/internal/appconf"
	"github.com/arquest/waypoint/internal/auth"
	"github.com/arquest/waypoint/internal/navigation"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config   appconf.Config
	Logger   *slog.Logger
	Sessions *navigation.Manager
	Router   navigation.Router
	Tokens   *auth.Issuer

	reloadMu sync.RWMutex
}

// Destination returns the destination new sessions navigate to when the
// client does not name one.
func (app *Application) Destination() navigation.Destination {
	app.reloadMu.RLock()
	defer app.reloadMu.RUnlock()
	return app.Config.Destination
}

// ApplyConfig swaps in reloadable settings. Sessions already running keep
// their tuning; new ones pick up the navigation config and destination.
func (app *Application) ApplyConfig(cfg appconf.Config) {
	app.reloadMu.Lock()
	app.Config.Destination = cfg.Destination
	app.Config.Navigation = cfg.Navigation
	app.reloadMu.Unlock()

	if app.Sessions != nil {
		app.Sessions.SetConfig(cfg.Navigation)
	}
	if app.Logger != nil {
		app.Logger.Info("navigation settings applied",
			slog.String("destination", cfg.Destination.DisplayName()),
			slog.Int("smoothing_window", cfg.Navigation.SmoothingWindow),
			slog.Float64("arrival_radius_meters", cfg.Navigation.ArrivalRadiusMeters))
	}
}
