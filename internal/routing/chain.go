package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/navigation"
)

// Provider is a named navigation.Router.
type Provider interface {
	navigation.Router
	Name() string
}

// Chain tries each provider in order and returns the first route found.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain returns a Chain over providers.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger.With(slog.String("component", "routing_chain"))}
}

func (c *Chain) Name() string { return "chain" }

// GetRoute returns the first successful route. When every provider fails
// the joined errors are returned wrapped in ErrRouteUnavailable.
func (c *Chain) GetRoute(ctx context.Context, origin, destination geo.Point) (navigation.Route, error) {
	if len(c.providers) == 0 {
		return navigation.Route{}, fmt.Errorf("%w: no routing providers configured", navigation.ErrRouteUnavailable)
	}

	var errs []error
	for _, p := range c.providers {
		route, err := p.GetRoute(ctx, origin, destination)
		if err == nil && len(route.Steps) > 0 {
			return route, nil
		}
		if err == nil {
			err = errors.New("empty route")
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		c.logger.Warn("routing provider failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()))

		if ctx.Err() != nil {
			break
		}
	}

	return navigation.Route{}, fmt.Errorf("%w: %w", navigation.ErrRouteUnavailable, errors.Join(errs...))
}
