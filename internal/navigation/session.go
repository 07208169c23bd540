package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arquest/waypoint/internal/heading"
	"github.com/arquest/waypoint/internal/logging"
)

type routeResult struct {
	route Route
	err   error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSink sets the render sink that receives every frame.
func WithSink(sink RenderSink) SessionOption {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session runs a Controller against live providers. All controller
// mutations happen on a single goroutine; State and Frame return copies.
type Session struct {
	id          string
	createdAt   time.Time
	destination Destination

	locations LocationProvider
	headings  HeadingProvider
	router    Router
	sink      RenderSink
	logger    *slog.Logger

	ctrl *Controller

	mu    sync.RWMutex
	state State
	frame Frame

	lifecycle sync.Mutex
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
	stopOnce  sync.Once
}

// NewSession creates a session that has not been started.
func NewSession(id string, cfg Config, destination Destination, locations LocationProvider, headings HeadingProvider, router Router, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		createdAt:   time.Now(),
		destination: destination,
		locations:   locations,
		headings:    headings,
		router:      router,
		sink:        discardSink{},
		logger:      slog.Default(),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "navigation_session"), slog.String("session_id", id))
	s.ctrl = NewController(cfg, destination, s.logger)
	s.state = s.ctrl.State()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Destination() Destination { return s.destination }

// State returns the latest snapshot.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Frame returns the latest frame.
func (s *Session) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Done is closed once the event loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start obtains the starting fix, subscribes to both streams, requests a
// route and launches the event loop. ctx bounds only the startup; the
// session keeps running after it is cancelled until Stop is called.
//
// Start fails with ErrLocationUnavailable when no starting fix can be
// obtained, and with ErrSessionStarted when called twice.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	if s.started {
		s.lifecycle.Unlock()
		return ErrSessionStarted
	}
	s.started = true
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.lifecycle.Unlock()

	startCtx, stopStartCtx := context.WithCancel(loopCtx)
	defer stopStartCtx()
	unlink := context.AfterFunc(ctx, stopStartCtx)
	defer unlink()

	s.apply(s.ctrl.Begin())

	origin, err := s.locations.CurrentLocation(startCtx)
	if err != nil {
		return s.failStart(cancel, err)
	}
	s.apply(s.ctrl.LocationResolved(origin))

	fixes, err := s.locations.SubscribeLocations(loopCtx)
	if err != nil {
		return s.failStart(cancel, err)
	}

	var samples <-chan heading.Sample
	if s.headings != nil {
		samples, err = s.headings.SubscribeHeadings(loopCtx)
		if err != nil {
			s.logger.Warn("heading stream unavailable, continuing without compass",
				slog.String("error", err.Error()))
			samples = nil
		}
	}

	results := make(chan routeResult, 1)
	go func() {
		start := time.Now()
		route, err := s.router.GetRoute(loopCtx, origin, s.destination.Point)
		logging.LogOperation(s.logger, "route_requested",
			slog.Duration("duration", time.Since(start)),
			slog.Bool("ok", err == nil))
		results <- routeResult{route: route, err: err}
	}()

	go s.run(loopCtx, cancel, fixes, samples, results)
	return nil
}

func (s *Session) failStart(cancel context.CancelFunc, err error) error {
	if !errors.Is(err, ErrLocationUnavailable) {
		err = fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	s.apply(s.ctrl.LocationFailed(err))
	cancel()
	close(s.done)
	return err
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, fixes <-chan LocationFix, samples <-chan heading.Sample, results <-chan routeResult) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return

		case fix, ok := <-fixes:
			if !ok {
				s.logger.Warn("location stream closed")
				fixes = nil
				continue
			}
			if fix.Err != nil {
				s.logger.Warn("location sample failed, keeping last fix",
					slog.String("error", fix.Err.Error()))
				continue
			}
			s.apply(s.ctrl.UpdateLocation(fix.Point))

		case sample, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			s.apply(s.ctrl.UpdateHeading(sample))

		case res := <-results:
			results = nil
			out, err := s.ctrl.RouteResolved(res.route, res.err)
			s.apply(out)
			if err != nil {
				cancel()
				return
			}
		}
	}
}

// Stop ends the session and unsubscribes from both streams. It blocks
// until the event loop has exited, so no input is applied after Stop
// returns. Calling Stop more than once is a no-op.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.lifecycle.Lock()
		started := s.started
		s.started = true
		cancel := s.cancel
		s.lifecycle.Unlock()

		if started && cancel != nil {
			cancel()
			<-s.done
		} else {
			close(s.done)
		}

		s.apply(s.ctrl.Stop())
		s.logger.Info("session stopped")
	})
}

func (s *Session) apply(out Outcome) {
	s.mu.Lock()
	s.state = s.ctrl.State()
	s.frame = out.Frame
	s.mu.Unlock()

	if out.Recomputed {
		s.sink.Publish(out.Frame)
	}
	if out.Arrived {
		if listener, ok := s.sink.(ArrivalListener); ok {
			listener.Arrived(out.Frame)
		}
	}
}
