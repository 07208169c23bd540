package heading

import (
	"math"
	"time"

	"github.com/arquest/waypoint/internal/geo"
)

// DefaultWindow is the number of trailing samples averaged when no window is configured.
const DefaultWindow = 5

// Sample is one raw compass reading. A nil Degrees means the platform had no
// reading; it is skipped rather than treated as north.
type Sample struct {
	Degrees    *float64  `json:"heading"`
	CapturedAt time.Time `json:"capturedAt"`
}

// NewSample returns a present reading captured at t.
func NewSample(degrees float64, t time.Time) Sample {
	return Sample{Degrees: &degrees, CapturedAt: t}
}

// Valid reports whether s carries a usable reading.
func (s Sample) Valid() bool {
	return s.Degrees != nil && !math.IsNaN(*s.Degrees) && !math.IsInf(*s.Degrees, 0)
}

// Smoother averages the last N compass readings on the unit circle so that
// 359 and 1 average to 0 rather than 180. It is not safe for concurrent use.
type Smoother struct {
	window  []float64
	size    int
	next    int
	count   int
	current float64
}

// NewSmoother returns a Smoother over the trailing size samples; size < 1 is treated as 1.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{
		window: make([]float64, size),
		size:   size,
	}
}

// Push records raw (in degrees, any range) and returns the circular mean of the window in [0,360).
// When the buffered unit vectors cancel out exactly the result is 0.
func (s *Smoother) Push(raw float64) float64 {
	s.window[s.next] = geo.NormalizeHeading(raw)
	s.next = (s.next + 1) % s.size
	if s.count < s.size {
		s.count++
	}

	var sumSin, sumCos float64
	for i := 0; i < s.count; i++ {
		theta := s.window[i] * math.Pi / 180
		sumSin += math.Sin(theta)
		sumCos += math.Cos(theta)
	}

	if math.Abs(sumSin) < 1e-12 && math.Abs(sumCos) < 1e-12 {
		s.current = 0
		return s.current
	}

	s.current = geo.NormalizeHeading(math.Atan2(sumSin, sumCos) * 180 / math.Pi)
	return s.current
}

// Current returns the most recent smoothed heading, or 0 before any sample.
func (s *Smoother) Current() float64 {
	return s.current
}

// Len returns how many samples are buffered.
func (s *Smoother) Len() int {
	return s.count
}

// Size returns the window capacity.
func (s *Smoother) Size() int {
	return s.size
}

// Reset drops every buffered sample.
func (s *Smoother) Reset() {
	s.next = 0
	s.count = 0
	s.current = 0
}
