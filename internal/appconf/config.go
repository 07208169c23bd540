package appconf

import (
	"errors"
	"fmt"
	"time"

	"github.com/arquest/waypoint/internal/navigation"
)

// RoutingConfig selects and tunes the routing clients.
type RoutingConfig struct {
	// Providers is the order in which routing services are tried.
	Providers          []string      `mapstructure:"providers"`
	OSRMBaseURL        string        `mapstructure:"osrm_base_url"`
	OSRMProfile        string        `mapstructure:"osrm_profile"`
	GraphHopperBaseURL string        `mapstructure:"graphhopper_base_url"`
	GraphHopperKey     string        `mapstructure:"graphhopper_key"`
	GraphHopperVehicle string        `mapstructure:"graphhopper_vehicle"`
	CacheSize          int           `mapstructure:"cache_size"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// Config holds all the configuration settings for the server. Values are
// read from defaults, an optional YAML file, a .env file, WAYPOINT_*
// environment variables and command-line flags, later sources winning.
type Config struct {
	Port        int                    `mapstructure:"port"`
	Env         Environment            `mapstructure:"env"`
	ApiKeys     []string               `mapstructure:"api_keys"`
	RateLimit   int                    `mapstructure:"rate_limit"`
	LogLevel    string                 `mapstructure:"log_level"`
	LogFile     string                 `mapstructure:"log_file"`
	JWTSecret   string                 `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration          `mapstructure:"token_ttl"`
	Destination navigation.Destination `mapstructure:"destination"`
	Navigation  navigation.Config      `mapstructure:"navigation"`
	Routing     RoutingConfig          `mapstructure:"routing"`
}

var knownProviders = map[string]bool{"osrm": true, "graphhopper": true}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.Env == Production && c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required in production"))
	}
	if err := c.Destination.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Navigation.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Routing.Providers) == 0 {
		errs = append(errs, errors.New("at least one routing provider is required"))
	}
	for _, p := range c.Routing.Providers {
		if !knownProviders[p] {
			errs = append(errs, fmt.Errorf("unknown routing provider %q", p))
		}
	}
	if c.Routing.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("routing timeout must be positive, got %v", c.Routing.Timeout))
	}
	return errors.Join(errs...)
}
