// Package filter provides the smoothing stage applied to raw lux samples
// before they reach the rolling window and bounds estimator. One filter is
// active at a time, selected by configuration.
package filter

import "fmt"

type Kind string

const (
	KindNone          Kind = "none"
	KindMovingAverage Kind = "sma"
	KindExponential   Kind = "ema"
	KindSavitzkyGolay Kind = "sg"
)

// Filter is a one-in-one-out smoothing stage. Process never blocks and is
// deterministic given the filter's internal state.
type Filter interface {
	Process(value float64) float64
}

type Config struct {
	Kind   Kind
	Window int     // sma/sg trailing window width
	Alpha  float64 // ema smoothing constant
	Order  int     // sg polynomial order
}

// New builds the configured filter variant. Invalid parameters are a
// configuration error and must be rejected before the control loop starts.
func New(cfg Config) (Filter, error) {
	switch cfg.Kind {
	case KindNone, "":
		return passthrough{}, nil
	case KindMovingAverage:
		return newMovingAverage(cfg.Window)
	case KindExponential:
		return newExponential(cfg.Alpha)
	case KindSavitzkyGolay:
		return newSavitzkyGolay(cfg.Window, cfg.Order)
	default:
		return nil, fmt.Errorf("filter: unknown kind %q", cfg.Kind)
	}
}

type passthrough struct{}

func (passthrough) Process(value float64) float64 { return value }

// MovingAverage returns the arithmetic mean of a trailing sub-window. While
// warming up it averages whatever samples have arrived so far.
type MovingAverage struct {
	sum    float64
	window []float64
	width  int
}

func newMovingAverage(width int) (*MovingAverage, error) {
	if width <= 0 {
		return nil, fmt.Errorf("filter: sma window width must be positive, got %d", width)
	}
	return &MovingAverage{window: make([]float64, 0, width), width: width}, nil
}

func (m *MovingAverage) Process(value float64) float64 {
	if len(m.window) == m.width {
		m.sum -= m.window[0]
		m.window = append(m.window[1:], value)
	} else {
		m.window = append(m.window, value)
	}
	m.sum += value
	return m.sum / float64(len(m.window))
}

// Exponential is a single-state exponential moving average. The first sample
// primes the state directly.
type Exponential struct {
	alpha  float64
	state  float64
	primed bool
}

func newExponential(alpha float64) (*Exponential, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("filter: ema alpha must be in (0,1], got %g", alpha)
	}
	return &Exponential{alpha: alpha}, nil
}

func (e *Exponential) Process(value float64) float64 {
	if !e.primed {
		e.state = value
		e.primed = true
		return e.state
	}
	e.state = e.alpha*value + (1-e.alpha)*e.state
	return e.state
}
