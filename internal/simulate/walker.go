// Package simulate replays a path as synthetic location and heading
// streams, so a navigation session can run without a device.
package simulate

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/heading"
	"github.com/arquest/waypoint/internal/navigation"
)

// Sample is one simulated position with the heading of travel.
type Sample struct {
	Point   geo.Point
	Heading float64
}

// Walker moves along a path at a fixed distance per tick.
type Walker struct {
	samples  []Sample
	interval time.Duration
	jitter   float64
	seed     int64
}

// Option configures a Walker.
type Option func(*walkerOptions)

type walkerOptions struct {
	interval      time.Duration
	metersPerTick float64
	jitter        float64
	seed          int64
}

// WithInterval sets the time between samples. Default 1s.
func WithInterval(d time.Duration) Option {
	return func(o *walkerOptions) { o.interval = d }
}

// WithStride sets the distance covered between samples. Default 5 m.
func WithStride(meters float64) Option {
	return func(o *walkerOptions) { o.metersPerTick = meters }
}

// WithHeadingJitter adds uniform noise of ±degrees to every heading sample.
func WithHeadingJitter(degrees float64, seed int64) Option {
	return func(o *walkerOptions) {
		o.jitter = degrees
		o.seed = seed
	}
}

// NewWalker prepares the samples for path. The path needs at least one point.
func NewWalker(path []geo.Point, opts ...Option) (*Walker, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("simulate: empty path")
	}
	o := walkerOptions{interval: time.Second, metersPerTick: 5}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metersPerTick <= 0 {
		return nil, fmt.Errorf("simulate: stride must be positive, got %v", o.metersPerTick)
	}
	if o.interval <= 0 {
		return nil, fmt.Errorf("simulate: interval must be positive, got %v", o.interval)
	}
	return &Walker{
		samples:  Densify(path, o.metersPerTick),
		interval: o.interval,
		jitter:   o.jitter,
		seed:     o.seed,
	}, nil
}

// Samples returns the positions the walker will emit, in order.
func (w *Walker) Samples() []Sample {
	out := make([]Sample, len(w.samples))
	copy(out, w.samples)
	return out
}

// Duration is how long a full replay takes.
func (w *Walker) Duration() time.Duration {
	return time.Duration(len(w.samples)) * w.interval
}

// CurrentLocation returns the start of the path.
func (w *Walker) CurrentLocation(context.Context) (geo.Point, error) {
	return w.samples[0].Point, nil
}

// SubscribeLocations emits every sample position, one per interval, and
// closes the channel at the end of the path or when ctx is done.
func (w *Walker) SubscribeLocations(ctx context.Context) (<-chan navigation.LocationFix, error) {
	ch := make(chan navigation.LocationFix)
	go func() {
		defer close(ch)
		w.replay(ctx, func(s Sample) bool {
			select {
			case ch <- navigation.LocationFix{Point: s.Point, Accuracy: 5, CapturedAt: time.Now()}:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return ch, nil
}

// SubscribeHeadings emits the direction of travel, plus jitter, one per interval.
func (w *Walker) SubscribeHeadings(ctx context.Context) (<-chan heading.Sample, error) {
	ch := make(chan heading.Sample)
	rng := rand.New(rand.NewSource(w.seed))
	go func() {
		defer close(ch)
		w.replay(ctx, func(s Sample) bool {
			h := s.Heading
			if w.jitter > 0 {
				h += (rng.Float64()*2 - 1) * w.jitter
			}
			select {
			case ch <- heading.NewSample(geo.NormalizeHeading(h), time.Now()):
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return ch, nil
}

func (w *Walker) replay(ctx context.Context, emit func(Sample) bool) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for _, s := range w.samples {
		if !emit(s) {
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// densifyEpsilon absorbs rounding in segment lengths, in meters.
const densifyEpsilon = 1e-3

// Densify walks path and returns a sample every stride meters, plus the
// final point. Each sample carries the bearing of the segment it lies on.
// An empty path yields no samples; a stride <= 0 keeps only the path's
// own vertices.
func Densify(path []geo.Point, stride float64) []Sample {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 {
		return []Sample{{Point: path[0]}}
	}
	if !(stride > 0) {
		return vertexSamples(path)
	}

	var samples []Sample
	var bearing float64
	carry := 0.0
	for i := 0; i+1 < len(path); i++ {
		a, b := path[i], path[i+1]
		length := geo.DistanceMeters(a, b)
		if length == 0 {
			continue
		}
		bearing = geo.InitialBearingDegrees(a, b)
		if carry >= length-densifyEpsilon {
			carry -= length
			if carry < densifyEpsilon {
				carry = 0
			}
			continue
		}
		for d := carry; d < length-densifyEpsilon; d += stride {
			p := a
			if d > 0 {
				p = geo.Destination(a, bearing, d)
			}
			samples = append(samples, Sample{Point: p, Heading: bearing})
		}
		if r := math.Mod(length-carry, stride); r <= densifyEpsilon || stride-r <= densifyEpsilon {
			carry = 0
		} else {
			carry = stride - r
		}
	}

	end := path[len(path)-1]
	if n := len(samples); n > 0 && geo.DistanceMeters(samples[n-1].Point, end) <= densifyEpsilon {
		samples[n-1].Point = end
		return samples
	}
	return append(samples, Sample{Point: end, Heading: bearing})
}

func vertexSamples(path []geo.Point) []Sample {
	samples := make([]Sample, 0, len(path))
	var bearing float64
	for i, p := range path {
		if i+1 < len(path) && geo.DistanceMeters(p, path[i+1]) > 0 {
			bearing = geo.InitialBearingDegrees(p, path[i+1])
		}
		samples = append(samples, Sample{Point: p, Heading: bearing})
	}
	return samples
}
