package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/navigation"
)

// Cache memoizes routes from an underlying provider. Origins are rounded
// to about 11 m so nearby starts share an entry, and concurrent misses
// for the same key make a single upstream request.
type Cache struct {
	next   Provider
	routes *expirable.LRU[string, navigation.Route]
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache wraps next with an LRU of size entries that expire after ttl.
func NewCache(next Provider, size int, ttl time.Duration, logger *slog.Logger) *Cache {
	if size < 1 {
		size = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		next:   next,
		routes: expirable.NewLRU[string, navigation.Route](size, nil, ttl),
		logger: logger.With(slog.String("component", "routing_cache")),
	}
}

func (c *Cache) Name() string { return c.next.Name() }

// Len returns the number of cached routes.
func (c *Cache) Len() int { return c.routes.Len() }

func (c *Cache) GetRoute(ctx context.Context, origin, destination geo.Point) (navigation.Route, error) {
	key := cacheKey(origin, destination)
	if route, ok := c.routes.Get(key); ok {
		c.logger.Debug("route cache hit", slog.String("key", key))
		return route, nil
	}

	// The upstream call outlives any one caller; the provider's own
	// timeout bounds it.
	upstream := context.WithoutCancel(ctx)
	results := c.group.DoChan(key, func() (any, error) {
		route, err := c.next.GetRoute(upstream, origin, destination)
		if err != nil {
			return navigation.Route{}, err
		}
		c.routes.Add(key, route)
		return route, nil
	})

	select {
	case <-ctx.Done():
		return navigation.Route{}, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return navigation.Route{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("route request shared", slog.String("key", key))
		}
		return res.Val.(navigation.Route), nil
	}
}

func cacheKey(origin, destination geo.Point) string {
	return fmt.Sprintf("%.4f,%.4f>%.6f,%.6f", origin.Lat, origin.Lng, destination.Lat, destination.Lng)
}
