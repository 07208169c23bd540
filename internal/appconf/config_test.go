package appconf

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arquest/waypoint/internal/logging"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestEnvFlagToEnvironment(t *testing.T) {
	tests := []struct {
		in       string
		expected Environment
	}{
		{"development", Development},
		{"", Development},
		{"staging", Development},
		{"test", Test},
		{"TEST", Test},
		{"production", Production},
		{"prod", Production},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvFlagToEnvironment(tt.in))
		})
	}
	assert.Equal(t, "production", Production.String())
}

func TestLoaderDefaults(t *testing.T) {
	loader, err := NewLoader("", "")
	require.NoError(t, err)

	cfg, err := loader.Config()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, Development, cfg.Env)
	assert.Equal(t, []string{"test"}, cfg.ApiKeys)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "Islington College", cfg.Destination.Name)
	assert.InDelta(t, 27.7113, cfg.Destination.Point.Lat, 1e-9)
	assert.InDelta(t, 85.3263, cfg.Destination.Point.Lng, 1e-9)
	assert.Equal(t, 5, cfg.Navigation.SmoothingWindow)
	assert.Equal(t, 15.0, cfg.Navigation.ArrivalRadiusMeters)
	assert.True(t, cfg.Navigation.FallbackRoute)
	assert.True(t, cfg.Navigation.StrictPreconditions, "development panics on precondition bugs")
	assert.Equal(t, []string{"osrm", "graphhopper"}, cfg.Routing.Providers)
	assert.Equal(t, 10*time.Second, cfg.Routing.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Routing.CacheTTL)
}

func TestLoaderYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "waypoint.yaml", `
port: 8080
env: production
jwt_secret: s3cret
api_keys: [alpha, beta]
destination:
  name: Temple
  lat: 27.7001
  lng: 85.3001
navigation:
  smoothing_window: 8
  arrival_radius_meters: 25
routing:
  providers: [graphhopper]
  graphhopper_key: gh-key
  timeout: 3s
`)

	loader, err := NewLoader(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, loader.ConfigFile())

	cfg, err := loader.Config()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, Production, cfg.Env)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.ApiKeys)
	assert.Equal(t, "Temple", cfg.Destination.Name)
	assert.Equal(t, 8, cfg.Navigation.SmoothingWindow)
	assert.Equal(t, 25.0, cfg.Navigation.ArrivalRadiusMeters)
	assert.Equal(t, 20.0, cfg.Navigation.StepAdvanceRadiusMeters, "unset keys keep their defaults")
	assert.False(t, cfg.Navigation.StrictPreconditions, "production keeps the last good index")
	assert.Equal(t, []string{"graphhopper"}, cfg.Routing.Providers)
	assert.Equal(t, "gh-key", cfg.Routing.GraphHopperKey)
	assert.Equal(t, 3*time.Second, cfg.Routing.Timeout)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestLoaderPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "waypoint.yaml", "port: 8080\nrate_limit: 7\n")

	t.Setenv("WAYPOINT_PORT", "9090")
	t.Setenv("WAYPOINT_API_KEYS", "one, two")
	t.Setenv("WAYPOINT_NAVIGATION_ARRIVAL_RADIUS_METERS", "12.5")

	loader, err := NewLoader(path, "")
	require.NoError(t, err)

	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"-rate-limit", "3", "-providers", "OSRM"}))
	loader.ApplyFlags(flags)

	cfg, err := loader.Config()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port, "environment beats the file")
	assert.Equal(t, 3, cfg.RateLimit, "flags beat the file")
	assert.Equal(t, []string{"one", "two"}, cfg.ApiKeys)
	assert.Equal(t, 12.5, cfg.Navigation.ArrivalRadiusMeters)
	assert.Equal(t, []string{"osrm"}, cfg.Routing.Providers)
}

func TestLoaderEnvFile(t *testing.T) {
	// Registered so the variable is restored once godotenv has set it.
	t.Setenv("WAYPOINT_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("WAYPOINT_JWT_SECRET"))

	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "WAYPOINT_JWT_SECRET=from-dotenv\n")

	loader, err := NewLoader("", envFile)
	require.NoError(t, err)
	cfg, err := loader.Config()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.JWTSecret)

	_, err = NewLoader("", filepath.Join(dir, "absent.env"))
	assert.NoError(t, err, "a missing .env file is not an error")
}

func TestStrictPreconditionsOverride(t *testing.T) {
	loader, err := NewLoader("", "")
	require.NoError(t, err)
	loader.Set("navigation.strict_preconditions", false)

	cfg, err := loader.Config()
	require.NoError(t, err)
	assert.False(t, cfg.Navigation.StrictPreconditions)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		loader, err := NewLoader("", "")
		require.NoError(t, err)
		cfg, err := loader.Config()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Port = 0 }, "port must be between"},
		{"production without secret", func(c *Config) { c.Env = Production; c.JWTSecret = "" }, "jwt_secret is required"},
		{"bad destination", func(c *Config) { c.Destination.Point.Lat = 120 }, "destination"},
		{"bad window", func(c *Config) { c.Navigation.SmoothingWindow = 0 }, "smoothing window"},
		{"no providers", func(c *Config) { c.Routing.Providers = nil }, "at least one routing provider"},
		{"unknown provider", func(c *Config) { c.Routing.Providers = []string{"valhalla"} }, `unknown routing provider "valhalla"`},
		{"bad timeout", func(c *Config) { c.Routing.Timeout = 0 }, "routing timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, valid().Validate())
}

func TestLoaderWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "waypoint.yaml", "navigation:\n  arrival_radius_meters: 15\n")

	loader, err := NewLoader(path, "")
	require.NoError(t, err)

	logger := logging.NewStructuredLogger(io.Discard, slog.LevelInfo)

	changes := make(chan Config, 8)
	loader.Watch(logger, func(cfg Config) {
		select {
		case changes <- cfg:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("navigation:\n  arrival_radius_meters: 30\n"), 0o644))

	// An editor may produce several events; wait for the final contents.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Navigation.ArrivalRadiusMeters == 30 {
				return
			}
		case <-deadline:
			t.Fatal("configuration change was not observed")
		}
	}
}
