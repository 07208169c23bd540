package navigation

import (
	"errors"
	"fmt"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/heading"
)

// Config holds the tuning values that differed between the prototype variants.
type Config struct {
	// SmoothingWindow is the number of compass samples averaged.
	SmoothingWindow int `mapstructure:"smoothing_window"`
	// ArrivalRadiusMeters is how close to the final step counts as arrived.
	ArrivalRadiusMeters float64 `mapstructure:"arrival_radius_meters"`
	// StepAdvanceRadiusMeters is how close to the current step snaps to the next one.
	StepAdvanceRadiusMeters float64 `mapstructure:"step_advance_radius_meters"`
	// FallbackRoute substitutes a direct single-step route when routing fails.
	FallbackRoute bool `mapstructure:"fallback_route"`
	// StrictPreconditions panics on tracker precondition violations instead of logging them.
	StrictPreconditions bool `mapstructure:"strict_preconditions"`
}

// DefaultConfig returns the values used by the shipped prototype.
func DefaultConfig() Config {
	return Config{
		SmoothingWindow:         heading.DefaultWindow,
		ArrivalRadiusMeters:     15,
		StepAdvanceRadiusMeters: 20,
		FallbackRoute:           true,
	}
}

// Validate reports unusable tuning values.
func (c Config) Validate() error {
	var errs []error
	if c.SmoothingWindow < 1 {
		errs = append(errs, fmt.Errorf("smoothing window must be at least 1, got %d", c.SmoothingWindow))
	}
	if c.ArrivalRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("arrival radius must be positive, got %v", c.ArrivalRadiusMeters))
	}
	if c.StepAdvanceRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("step advance radius must be positive, got %v", c.StepAdvanceRadiusMeters))
	}
	return errors.Join(errs...)
}

// Destination is the fixed target of a session.
type Destination struct {
	Name  string    `json:"name" mapstructure:"name"`
	Point geo.Point `json:"point" mapstructure:",squash"`
}

// DisplayName returns the name, or a generic label when none was configured.
func (d Destination) DisplayName() string {
	if d.Name == "" {
		return "your destination"
	}
	return d.Name
}

// Validate checks the destination coordinates.
func (d Destination) Validate() error {
	if err := geo.Validate(d.Point); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	return nil
}
