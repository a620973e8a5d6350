// Package control runs the per-tick pipeline for one light channel: average
// sub-readings, filter, update the rolling window, refresh bounds, normalize
// and arbitrate into a single actuator command.
package control

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/skohler/chamber-pi/pkg/arbiter"
	"github.com/skohler/chamber-pi/pkg/bounds"
	"github.com/skohler/chamber-pi/pkg/filter"
	"github.com/skohler/chamber-pi/pkg/normalize"
	"github.com/skohler/chamber-pi/pkg/window"
)

type Config struct {
	WindowSize      int
	Filter          filter.Config
	Strategy        bounds.Strategy
	BoundsAlpha     float64
	SigmaMultiplier float64
	// DefaultSpan is the assumed lux range before the window fills.
	DefaultSpan float64
	MaxCode     int
}

// TickInput is everything the loop consumes for one tick. An empty Samples
// slice means no new reading arrived; the loop reuses its previous state.
type TickInput struct {
	Samples         []float64
	OverrideEnabled bool
	OverrideCode    int
	LEDEnabled      bool
	PotMode         bool
	PotRaw          int
	PotFraction     float64
}

// Snapshot is the immutable record of one tick, consumed by the history
// logger, the web broadcaster, MQTT and the LCD.
type Snapshot struct {
	Time        time.Time       `json:"timestamp"`
	Raw         float64         `json:"raw_lux"`
	Filtered    float64         `json:"filtered_lux"`
	Clamped     float64         `json:"clamped_lux"`
	Bounds      bounds.Bounds   `json:"bounds"`
	Fraction    float64         `json:"fraction"`
	Command     arbiter.Command `json:"command"`
	LEDEnabled  bool            `json:"led_enabled"`
	PotMode     bool            `json:"pot_mode"`
	PotRaw      int             `json:"pot_raw"`
	PotFraction float64         `json:"pot_fraction"`
	Stale       bool            `json:"stale"`
}

// Loop owns the mutable state of one control channel. It is driven
// sequentially by a single goroutine; a second channel gets its own Loop.
type Loop struct {
	cfg     Config
	filt    filter.Filter
	win     *window.SampleWindow
	est     bounds.Estimator
	tracker *bounds.Tracker

	lastRaw      float64
	lastFiltered float64
	primed       bool
}

func NewLoop(cfg Config) (*Loop, error) {
	if cfg.MaxCode <= 0 {
		return nil, fmt.Errorf("control: max actuator code must be positive, got %d", cfg.MaxCode)
	}
	if cfg.DefaultSpan <= 0 {
		return nil, fmt.Errorf("control: default span must be positive, got %g", cfg.DefaultSpan)
	}
	filt, err := filter.New(cfg.Filter)
	if err != nil {
		return nil, err
	}
	win, err := window.New(cfg.WindowSize)
	if err != nil {
		return nil, err
	}
	est, err := bounds.NewEstimator(cfg.Strategy, cfg.SigmaMultiplier)
	if err != nil {
		return nil, err
	}
	tracker, err := bounds.NewTracker(bounds.Bounds{Low: 0, High: cfg.DefaultSpan}, cfg.BoundsAlpha)
	if err != nil {
		return nil, err
	}
	return &Loop{cfg: cfg, filt: filt, win: win, est: est, tracker: tracker}, nil
}

// Tick runs one full iteration. It never returns an error: input defects are
// logged and absorbed by reusing the previous tick's filtered value and
// bounds, so a single bad reading cannot stop the device.
func (l *Loop) Tick(in TickInput) Snapshot {
	raw, ok := average(in.Samples)
	stale := !ok

	if ok {
		l.lastRaw = raw
		l.lastFiltered = l.filt.Process(raw)
		// Insertion precedes bounds recomputation precedes clamping; the
		// bounds adapt to include the very sample being normalized.
		l.win.Push(l.lastFiltered)
		l.primed = true
	} else {
		slog.Debug("no new sample this tick, reusing previous state", "module", "control")
	}

	cur := l.currentBounds()
	var clamped float64
	if !l.win.Full() && !l.est.Blending() {
		// Simple-extrema warm-up grace period: the signal passes through
		// unclamped until the window fills.
		clamped = l.lastFiltered
	} else {
		clamped = cur.Clamp(l.lastFiltered)
	}
	fraction := normalize.Fraction(l.lastFiltered, cur)
	if !l.primed {
		fraction = 0
	}

	cmd := arbiter.Decide(arbiter.Inputs{
		OverrideEnabled: in.OverrideEnabled,
		OverrideCode:    in.OverrideCode,
		LEDEnabled:      in.LEDEnabled,
		PotMode:         in.PotMode,
		LuxFraction:     fraction,
		PotFraction:     in.PotFraction,
	}, l.cfg.MaxCode)

	return Snapshot{
		Time:        time.Now(),
		Raw:         l.lastRaw,
		Filtered:    l.lastFiltered,
		Clamped:     clamped,
		Bounds:      cur,
		Fraction:    fraction,
		Command:     cmd,
		LEDEnabled:  in.LEDEnabled,
		PotMode:     in.PotMode,
		PotRaw:      in.PotRaw,
		PotFraction: in.PotFraction,
		Stale:       stale,
	}
}

// currentBounds refreshes the persistent bounds when the window is ready and
// returns the pair normalization should use this tick. Until the window
// fills, the configured default span applies: the simple strategy passes the
// signal through unclamped as a warm-up grace period, the robust strategy
// keeps its initialized bounds and blends once full.
func (l *Loop) currentBounds() bounds.Bounds {
	if !l.win.Full() {
		return l.tracker.Current()
	}
	est := l.est.Estimate(l.win.Snapshot())
	if l.est.Blending() {
		return l.tracker.Blend(est)
	}
	return l.tracker.Replace(est)
}

// Bounds exposes the persistent bounds for status reporting.
func (l *Loop) Bounds() bounds.Bounds {
	return l.tracker.Current()
}

// WindowReady reports whether the estimator output is trustworthy yet.
func (l *Loop) WindowReady() bool {
	return l.win.Full()
}

// MaxCode is the configured actuator code ceiling.
func (l *Loop) MaxCode() int {
	return l.cfg.MaxCode
}

// SafeCommand is the shutdown command: actuator off.
func SafeCommand() arbiter.Command {
	return arbiter.Command{Code: 0, Source: arbiter.SourceIdle}
}

func average(samples []float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples)), true
}
