package app

import (
	"fmt"
	"log/slog"

	"github.com/arquest/waypoint/internal/appconf"
	"github.com/arquest/waypoint/internal/navigation"
	"github.com/arquest/waypoint/internal/routing"
)

// NewRouter builds the routing chain named by cfg.Providers, in order,
// behind a shared route cache. GraphHopper is skipped without an API key.
func NewRouter(cfg appconf.RoutingConfig, logger *slog.Logger) (navigation.Router, error) {
	var providers []routing.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "osrm":
			providers = append(providers, routing.NewOSRMClient(cfg.OSRMBaseURL, cfg.OSRMProfile, cfg.Timeout, logger))
		case "graphhopper":
			if cfg.GraphHopperKey == "" {
				logger.Warn("graphhopper configured without an API key, skipping it")
				continue
			}
			providers = append(providers, routing.NewGraphHopperClient(cfg.GraphHopperBaseURL, cfg.GraphHopperKey, cfg.GraphHopperVehicle, cfg.Timeout, logger))
		default:
			return nil, fmt.Errorf("unknown routing provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable routing provider in %v", cfg.Providers)
	}

	return routing.NewCache(routing.NewChain(logger, providers...), cfg.CacheSize, cfg.CacheTTL, logger), nil
}
