// Package bounds tracks the believed operating range of the raw lux signal.
// An Estimator derives candidate bounds from a window snapshot; a Tracker
// folds those candidates into the persistent bounds used for normalization.
package bounds

import "fmt"

// Bounds is the current (low, high) operating range. Low <= High always holds
// for bounds produced by a Tracker.
type Bounds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (b Bounds) Span() float64 {
	return b.High - b.Low
}

// Clamp limits v to the range. Used by the simple-extrema strategy, which
// clamps the signal to observed extremes before normalization.
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Low {
		return b.Low
	}
	if v > b.High {
		return b.High
	}
	return v
}

const (
	// minSpan is the degenerate-span threshold; below it the high bound is
	// widened so normalization never divides by zero.
	minSpan = 1e-3
	// widenTo is the span applied when bounds collapse.
	widenTo = 1.0
)

// widen enforces the Low <= High invariant with a usable span.
func widen(b Bounds) Bounds {
	if b.High <= b.Low+minSpan {
		b.High = b.Low + widenTo
	}
	return b
}

// Tracker holds the persistent bounds for one control channel and blends
// estimator output into them with exponential smoothing. Blending damps the
// reaction to single outlier samples entering the window, trading a few tens
// of seconds of adaptation lag for flicker-free actuator output.
type Tracker struct {
	cur   Bounds
	alpha float64
}

func NewTracker(initial Bounds, alpha float64) (*Tracker, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("bounds: smoothing alpha must be in (0,1], got %g", alpha)
	}
	return &Tracker{cur: widen(initial), alpha: alpha}, nil
}

// Blend folds est into the persistent bounds and returns the result.
func (t *Tracker) Blend(est Bounds) Bounds {
	t.cur.Low = (1-t.alpha)*t.cur.Low + t.alpha*est.Low
	t.cur.High = (1-t.alpha)*t.cur.High + t.alpha*est.High
	t.cur = widen(t.cur)
	return t.cur
}

// Replace overwrites the persistent bounds outright. Used by the simple
// strategy, which trusts the window extremes as-is.
func (t *Tracker) Replace(est Bounds) Bounds {
	t.cur = widen(est)
	return t.cur
}

func (t *Tracker) Current() Bounds {
	return t.cur
}
