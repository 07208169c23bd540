package appconf

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/navigation"
)

// EnvPrefix is prepended to every environment variable name, e.g. WAYPOINT_PORT
// or WAYPOINT_ROUTING_OSRM_BASE_URL.
const EnvPrefix = "WAYPOINT"

const strictPreconditionsKey = "navigation.strict_preconditions"

// flagBindings maps command-line flags onto configuration keys.
var flagBindings = []struct {
	flag  string
	key   string
	usage string
}{
	{"port", "port", "API server port"},
	{"env", "env", "Environment (development|test|production)"},
	{"api-keys", "api_keys", "Comma Separated API Keys (test, etc)"},
	{"rate-limit", "rate_limit", "Requests per second allowed per API key"},
	{"log-level", "log_level", "Log level (debug|info|warn|error)"},
	{"log-file", "log_file", "Write logs to this rotating file instead of stdout"},
	{"jwt-secret", "jwt_secret", "Secret used to sign session tokens"},
	{"providers", "routing.providers", "Comma separated routing providers, tried in order (osrm,graphhopper)"},
	{"osrm-url", "routing.osrm_base_url", "OSRM server base URL"},
	{"graphhopper-key", "routing.graphhopper_key", "GraphHopper API key"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 4000)
	v.SetDefault("env", "development")
	v.SetDefault("api_keys", []string{"test"})
	v.SetDefault("rate_limit", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "12h")

	v.SetDefault("destination.name", "Islington College")
	v.SetDefault("destination.lat", 27.7113)
	v.SetDefault("destination.lng", 85.3263)

	nav := navigation.DefaultConfig()
	v.SetDefault("navigation.smoothing_window", nav.SmoothingWindow)
	v.SetDefault("navigation.arrival_radius_meters", nav.ArrivalRadiusMeters)
	v.SetDefault("navigation.step_advance_radius_meters", nav.StepAdvanceRadiusMeters)
	v.SetDefault("navigation.fallback_route", nav.FallbackRoute)

	v.SetDefault("routing.providers", []string{"osrm", "graphhopper"})
	v.SetDefault("routing.osrm_base_url", "https://router.project-osrm.org")
	v.SetDefault("routing.osrm_profile", "driving")
	v.SetDefault("routing.graphhopper_base_url", "https://graphhopper.com")
	v.SetDefault("routing.graphhopper_key", "")
	v.SetDefault("routing.graphhopper_vehicle", "car")
	v.SetDefault("routing.cache_size", 256)
	v.SetDefault("routing.cache_ttl", "10m")
	v.SetDefault("routing.timeout", "10s")
}

// Loader layers the configuration sources and can watch the YAML file.
type Loader struct {
	mu sync.Mutex
	v  *viper.Viper
}

// NewLoader reads envFile (if present) into the process environment and
// then the YAML configFile. Either may be empty.
func NewLoader(configFile, envFile string) (*Loader, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No default, so IsSet tells whether anyone chose a value.
	_ = v.BindEnv(strictPreconditionsKey)

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	return &Loader{v: v}, nil
}

// RegisterFlags defines the command-line flags understood by ApplyFlags.
// Every flag defaults to empty so only flags given explicitly override
// the other sources.
func RegisterFlags(flags *flag.FlagSet) {
	for _, b := range flagBindings {
		flags.String(b.flag, "", b.usage)
	}
}

// ApplyFlags overrides configuration keys with the flags set on flags.
func (l *Loader) ApplyFlags(flags *flag.FlagSet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	flags.Visit(func(f *flag.Flag) {
		for _, b := range flagBindings {
			if b.flag == f.Name {
				l.v.Set(b.key, f.Value.String())
			}
		}
	})
}

// Set overrides a single key.
func (l *Loader) Set(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Set(key, value)
}

// Config decodes and validates the current configuration.
func (l *Loader) Config() (Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := l.v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.ApiKeys = cleanList(cfg.ApiKeys, false)
	cfg.Routing.Providers = cleanList(cfg.Routing.Providers, true)
	if !l.v.IsSet(strictPreconditionsKey) {
		cfg.Navigation.StrictPreconditions = cfg.Env != Production
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ConfigFile returns the YAML file in use, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the new configuration whenever the YAML file
// changes. Invalid edits are logged and skipped. Without a config file
// Watch does nothing.
func (l *Loader) Watch(logger *slog.Logger, onChange func(Config)) {
	if l.ConfigFile() == "" {
		return
	}
	logger = logging.Component(logger, "config")

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.Config()
		if err != nil {
			logging.LogError(logger, "ignoring invalid configuration change", err,
				slog.String("file", e.Name))
			return
		}
		logging.LogOperation(logger, "configuration_reloaded",
			slog.String("file", e.Name),
			slog.String("op", e.Op.String()))
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func cleanList(items []string, lower bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if lower {
			item = strings.ToLower(item)
		}
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
