package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/heading"
)

// DefaultFeedBuffer is the per-stream buffer used when none is given.
const DefaultFeedBuffer = 16

// ErrFeedClosed is returned when pushing into a closed Feed.
var ErrFeedClosed = errors.New("feed closed")

// Feed is a push-driven LocationProvider and HeadingProvider. Producers
// such as HTTP handlers push samples; a single session consumes them.
// When a buffer is full the oldest sample is dropped so producers never
// block on a slow session.
type Feed struct {
	mu        sync.Mutex
	last      *geo.Point
	ready     chan struct{}
	locations chan LocationFix
	headings  chan heading.Sample
	closed    bool
	dropped   uint64
}

// NewFeed returns a Feed buffering up to buffer samples per stream.
func NewFeed(buffer int) *Feed {
	if buffer < 1 {
		buffer = DefaultFeedBuffer
	}
	return &Feed{
		ready:     make(chan struct{}),
		locations: make(chan LocationFix, buffer),
		headings:  make(chan heading.Sample, buffer),
	}
}

// PushLocation records fix as the latest location and queues it for the subscriber.
func (f *Feed) PushLocation(fix LocationFix) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}
	if fix.Err == nil {
		if err := geo.Validate(fix.Point); err != nil {
			return err
		}
		p := fix.Point
		if f.last == nil {
			close(f.ready)
		}
		f.last = &p
	}
	pushDropOldest(f.locations, fix, &f.dropped)
	return nil
}

// PushHeading queues a raw compass sample for the subscriber.
func (f *Feed) PushHeading(sample heading.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}
	pushDropOldest(f.headings, sample, &f.dropped)
	return nil
}

// Dropped returns how many samples were discarded because a buffer was full.
func (f *Feed) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// Close rejects further pushes. Channels are left open; subscribers stop
// through their context.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// CurrentLocation returns the latest pushed location, waiting for the
// first one until ctx is done.
func (f *Feed) CurrentLocation(ctx context.Context) (geo.Point, error) {
	select {
	case <-f.ready:
	case <-ctx.Done():
		return geo.Point{}, fmt.Errorf("%w: no location received: %v", ErrLocationUnavailable, ctx.Err())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.last, nil
}

func (f *Feed) SubscribeLocations(context.Context) (<-chan LocationFix, error) {
	return f.locations, nil
}

func (f *Feed) SubscribeHeadings(context.Context) (<-chan heading.Sample, error) {
	return f.headings, nil
}

func pushDropOldest[T any](ch chan T, v T, dropped *uint64) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
		*dropped++
	default:
	}
	select {
	case ch <- v:
	default:
		*dropped++
	}
}
