package navigation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/heading"
	"github.com/arquest/waypoint/internal/logging"
)

// Outcome reports what one input did to the controller.
type Outcome struct {
	Frame Frame
	// Recomputed is true when Frame should be published to the render sink.
	Recomputed bool
	// Arrived is true only for the input that caused the arrival transition.
	Arrived bool
}

// Controller is the navigation state machine. It owns the route, the
// current step index and the heading smoother, and turns location and
// heading inputs into frames.
//
// A Controller is not safe for concurrent use; Session serializes access.
type Controller struct {
	cfg         Config
	destination Destination
	logger      *slog.Logger

	smoother *heading.Smoother

	phase     Phase
	location  *geo.Point
	pending   *geo.Point
	route     *Route
	stepIndex int
	arrived   bool

	frame    Frame
	sequence uint64
}

// NewController creates an idle controller for one destination.
func NewController(cfg Config, destination Destination, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:         cfg,
		destination: destination,
		logger:      logger,
		smoother:    heading.NewSmoother(cfg.SmoothingWindow),
		phase:       PhaseIdle,
	}
}

// Destination returns the fixed target of this controller.
func (c *Controller) Destination() Destination {
	return c.destination
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// State returns a snapshot of the navigation state. The route pointer is
// shared but routes are never mutated after they are installed.
func (c *Controller) State() State {
	s := State{
		Phase:            c.phase,
		SmoothedHeading:  c.smoother.Current(),
		CurrentStepIndex: c.stepIndex,
		IsNavigating:     c.route != nil,
		HasArrived:       c.arrived,
		Route:            c.route,
	}
	if c.location != nil {
		loc := *c.location
		s.CurrentLocation = &loc
	}
	return s
}

// Frame returns the most recently produced frame.
func (c *Controller) Frame() Frame {
	return c.frame
}

// Begin moves Idle to Locating.
func (c *Controller) Begin() Outcome {
	if c.phase != PhaseIdle {
		return Outcome{Frame: c.frame}
	}
	c.phase = PhaseLocating
	return c.emit(c.statusFrame(statusLocating(), StatusInfo))
}

// LocationResolved records the one-shot fix and moves Locating to
// RouteRequested. The caller is expected to request a route from Origin.
func (c *Controller) LocationResolved(p geo.Point) Outcome {
	if c.phase != PhaseLocating {
		return Outcome{Frame: c.frame}
	}
	loc := p
	c.location = &loc
	c.phase = PhaseRouteRequested
	return c.emit(c.statusFrame(statusRouting(c.destination), StatusInfo))
}

// LocationFailed ends a session that could not obtain a starting fix.
func (c *Controller) LocationFailed(err error) Outcome {
	logging.LogError(c.logger, "location unavailable", err,
		slog.String("destination", c.destination.DisplayName()))
	c.reset()
	return c.emit(c.statusFrame(statusError(err), StatusError))
}

// Origin returns the location a route should be requested from.
func (c *Controller) Origin() (geo.Point, bool) {
	if c.location == nil {
		return geo.Point{}, false
	}
	return *c.location, true
}

// RouteResolved installs the result of a route request. A failed or empty
// route is replaced by a direct route when FallbackRoute is set; otherwise
// the controller stops and the error is returned wrapped in
// ErrRouteUnavailable.
func (c *Controller) RouteResolved(route Route, routeErr error) (Outcome, error) {
	if c.phase != PhaseRouteRequested {
		return Outcome{Frame: c.frame}, nil
	}
	if routeErr == nil && len(route.Steps) == 0 {
		routeErr = fmt.Errorf("%w: route has no steps", ErrRouteUnavailable)
	}

	status := statusNavigating(c.destination)
	level := StatusInfo
	if routeErr != nil {
		if !c.cfg.FallbackRoute {
			logging.LogError(c.logger, "route request failed", routeErr,
				slog.String("destination", c.destination.DisplayName()))
			c.reset()
			out := c.emit(c.statusFrame(statusError(routeErr), StatusError))
			return out, wrapRouteErr(routeErr)
		}
		c.logger.Warn("route request failed, using direct route",
			slog.String("error", routeErr.Error()),
			slog.String("destination", c.destination.DisplayName()))
		route = DirectRoute(*c.location, c.destination)
		status = "Route not found"
		level = StatusError
	}

	c.route = &route
	c.stepIndex = 0
	c.phase = PhaseNavigating

	c.logger.Info("navigation started",
		slog.String("provider", route.Provider),
		slog.Int("steps", len(route.Steps)),
		slog.Float64("total_distance_m", route.TotalDistanceMeters),
		slog.Bool("fallback", route.Fallback))

	if c.pending != nil {
		pending := *c.pending
		c.pending = nil
		out := c.UpdateLocation(pending)
		if !out.Arrived {
			out.Frame.Status, out.Frame.StatusLevel = status, level
			c.frame = out.Frame
		}
		return out, nil
	}

	frame := c.navigationFrame(*c.location, false)
	frame.Status, frame.StatusLevel = status, level
	return c.emit(frame), nil
}

// UpdateLocation handles one position from the location stream.
//
// While a route is outstanding the latest position is cached and applied
// once the route arrives. While navigating the step tracker runs, the
// frame is recomputed and the arrival rule is checked. After arrival the
// arrival frame is reported again and the step index is left untouched.
func (c *Controller) UpdateLocation(p geo.Point) Outcome {
	if err := geo.Validate(p); err != nil {
		c.logger.Warn("ignoring invalid location", slog.String("error", err.Error()))
		return Outcome{Frame: c.frame}
	}

	switch c.phase {
	case PhaseLocating, PhaseRouteRequested:
		loc := p
		c.pending = &loc
		return Outcome{Frame: c.frame}
	case PhaseArrived:
		loc := p
		c.location = &loc
		return c.emit(c.arrivalFrame(p))
	case PhaseNavigating:
	default:
		return Outcome{Frame: c.frame}
	}

	loc := p
	c.location = &loc

	next, err := Advance(*c.route, c.stepIndex, p, c.cfg.StepAdvanceRadiusMeters)
	if err != nil {
		c.preconditionFailed(err)
		next = c.stepIndex
	}
	if next != c.stepIndex {
		c.logger.Debug("advanced step",
			slog.Int("from", c.stepIndex),
			slog.Int("to", next))
	}
	c.stepIndex = next

	if c.reachedDestination(p) {
		c.arrived = true
		c.phase = PhaseArrived
		c.logger.Info("arrived",
			slog.String("destination", c.destination.DisplayName()),
			slog.Int("step", c.stepIndex))
		out := c.emit(c.arrivalFrame(p))
		out.Arrived = true
		return out
	}

	return c.emit(c.navigationFrame(p, true))
}

// UpdateHeading handles one raw compass sample. Absent readings are
// ignored. The sample always reaches the smoother, but the frame is only
// recomputed while navigating, and the step tracker never runs.
func (c *Controller) UpdateHeading(sample heading.Sample) Outcome {
	if sample.Degrees == nil {
		return Outcome{Frame: c.frame}
	}
	if !sample.Valid() {
		c.logger.Warn("ignoring invalid heading", slog.Float64("heading", *sample.Degrees))
		return Outcome{Frame: c.frame}
	}
	if c.phase == PhaseStopped {
		return Outcome{Frame: c.frame}
	}

	c.smoother.Push(*sample.Degrees)

	switch c.phase {
	case PhaseNavigating:
		return c.emit(c.navigationFrame(*c.location, true))
	case PhaseArrived:
		return c.emit(c.arrivalFrame(*c.location))
	default:
		return Outcome{Frame: c.frame}
	}
}

// Stop ends navigation. Calling Stop on a stopped controller is a no-op.
func (c *Controller) Stop() Outcome {
	if c.phase == PhaseStopped {
		return Outcome{Frame: c.frame}
	}
	c.reset()
	frame := c.frame
	frame.Phase = PhaseStopped
	frame.PhaseName = PhaseStopped.String()
	frame.Status, frame.StatusLevel = "", ""
	return c.emit(frame)
}

func (c *Controller) reset() {
	c.phase = PhaseStopped
	c.route = nil
	c.stepIndex = 0
	c.pending = nil
}

func (c *Controller) reachedDestination(p geo.Point) bool {
	if c.stepIndex != c.route.LastIndex() {
		return false
	}
	toStep := geo.DistanceMeters(p, c.route.Steps[c.stepIndex].Location)
	toDestination := geo.DistanceMeters(p, c.destination.Point)
	return math.Min(toStep, toDestination) < c.cfg.ArrivalRadiusMeters
}

func (c *Controller) preconditionFailed(err error) {
	if c.cfg.StrictPreconditions {
		panic(err)
	}
	logging.LogError(c.logger, "step tracking precondition violated", err,
		slog.Int("step", c.stepIndex))
}

func (c *Controller) navigationFrame(p geo.Point, withRemaining bool) Frame {
	step := c.route.Steps[c.stepIndex]

	bearing := geo.InitialBearingDegrees(p, step.Location)
	distance := geo.DistanceMeters(p, step.Location)
	direction := Classify(RelativeAngle(bearing, c.smoother.Current()), step.Maneuver)

	instruction := step.Instruction
	if instruction == "" {
		instruction = step.Maneuver.Instruction()
	}

	frame := Frame{
		Instruction:       instruction,
		Direction:         direction,
		DistanceToStep:    distance,
		DistanceText:      FormatDistance(distance),
		TotalDistanceText: FormatTotalDistance(c.route.TotalDistanceMeters),
		StepIndex:         c.stepIndex,
		TotalSteps:        len(c.route.Steps),
		Phase:             c.phase,
	}
	if withRemaining {
		frame.Status = statusRemaining(geo.DistanceMeters(p, c.destination.Point), c.destination)
		frame.StatusLevel = StatusInfo
	}
	return frame
}

func (c *Controller) arrivalFrame(p geo.Point) Frame {
	frame := c.navigationFrame(p, false)
	frame.Instruction = arrivedInstruction(c.destination)
	frame.Direction = Classify(frame.Direction.Angle, ManeuverArrive)
	frame.Direction.Text = arrivedDirectionText
	frame.Arrived = true
	frame.Status = statusArrived(c.destination)
	frame.StatusLevel = StatusInfo
	return frame
}

func (c *Controller) statusFrame(status string, level StatusLevel) Frame {
	frame := c.frame
	frame.Phase = c.phase
	frame.Status = status
	frame.StatusLevel = level
	return frame
}

func (c *Controller) emit(frame Frame) Outcome {
	c.sequence++
	frame.Sequence = c.sequence
	frame.Phase = c.phase
	frame.PhaseName = c.phase.String()
	c.frame = frame
	return Outcome{Frame: frame, Recomputed: true}
}

func wrapRouteErr(err error) error {
	if errors.Is(err, ErrRouteUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
}
