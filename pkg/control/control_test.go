package control

import (
	"math"
	"testing"

	"github.com/skohler/chamber-pi/pkg/arbiter"
	"github.com/skohler/chamber-pi/pkg/bounds"
	"github.com/skohler/chamber-pi/pkg/filter"
)

func simpleConfig(windowSize int) Config {
	return Config{
		WindowSize:  windowSize,
		Filter:      filter.Config{Kind: filter.KindNone},
		Strategy:    bounds.StrategySimple,
		BoundsAlpha: 1.0,
		DefaultSpan: 1000,
		MaxCode:     1023,
	}
}

func robustConfig(windowSize int) Config {
	return Config{
		WindowSize:      windowSize,
		Filter:          filter.Config{Kind: filter.KindNone},
		Strategy:        bounds.StrategyRobust,
		BoundsAlpha:     0.05,
		SigmaMultiplier: 3.0,
		DefaultSpan:     1000,
		MaxCode:         1023,
	}
}

func autoTick(samples ...float64) TickInput {
	return TickInput{Samples: samples, LEDEnabled: true}
}

func TestNewLoopRejectsBadConfig(t *testing.T) {
	bad := []Config{
		simpleConfig(0),
		{WindowSize: 10, Strategy: bounds.StrategySimple, BoundsAlpha: 1, DefaultSpan: 1000, MaxCode: 0},
		{WindowSize: 10, Strategy: bounds.StrategySimple, BoundsAlpha: 1, DefaultSpan: 0, MaxCode: 1023},
		{WindowSize: 10, Strategy: "spline", BoundsAlpha: 1, DefaultSpan: 1000, MaxCode: 1023},
		{WindowSize: 10, Strategy: bounds.StrategySimple, BoundsAlpha: 0, DefaultSpan: 1000, MaxCode: 1023},
	}
	for i, cfg := range bad {
		if _, err := NewLoop(cfg); err == nil {
			t.Errorf("case %d: NewLoop(%+v) should fail", i, cfg)
		}
	}
}

func TestSimpleClampBypassDuringWarmup(t *testing.T) {
	l, err := NewLoop(simpleConfig(600))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []float64{100, 150, 200} {
		l.Tick(autoTick(v))
	}
	snap := l.Tick(autoTick(1000))
	if snap.Clamped != 1000 {
		t.Errorf("warm-up clamped = %v, want 1000 (bypass)", snap.Clamped)
	}
	snap = l.Tick(autoTick(5000))
	if snap.Clamped != 5000 {
		t.Errorf("warm-up clamped = %v, want 5000 (bypass, even for outliers)", snap.Clamped)
	}
}

func TestSimpleClampAdaptsToQueriedSample(t *testing.T) {
	l, err := NewLoop(simpleConfig(600))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 600; i++ {
		l.Tick(autoTick(500))
	}
	// The insertion happens before bounds recomputation, so the new max
	// includes the sample under test.
	snap := l.Tick(autoTick(1000))
	if snap.Bounds.High != 1000 {
		t.Errorf("high = %v, want 1000", snap.Bounds.High)
	}
	if snap.Clamped != 1000 {
		t.Errorf("clamped = %v, want 1000", snap.Clamped)
	}
}

func TestRobustBoundsHoldDefaultUntilFull(t *testing.T) {
	l, err := NewLoop(robustConfig(10))
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	for i := 0; i < 9; i++ {
		snap = l.Tick(autoTick(250))
		if snap.Bounds != (bounds.Bounds{Low: 0, High: 1000}) {
			t.Fatalf("tick %d: bounds = %+v, want default", i, snap.Bounds)
		}
	}
	snap = l.Tick(autoTick(250))
	if snap.Bounds.High >= 1000 {
		t.Errorf("bounds after full window did not move: %+v", snap.Bounds)
	}
}

func TestRobustBoundsBlendGradually(t *testing.T) {
	l, _ := NewLoop(robustConfig(10))
	for i := 0; i < 10; i++ {
		l.Tick(autoTick(100 + float64(i%3)))
	}
	// One blend step from (0,1000) toward roughly (100,102)
	b := l.Bounds()
	if b.High > 960 || b.High < 900 {
		t.Errorf("high = %v, expected one 5%% blend step from 1000", b.High)
	}
	if b.Low < 4 || b.Low > 6 {
		t.Errorf("low = %v, expected one 5%% blend step from 0", b.Low)
	}
}

func TestMissingSampleReusesPreviousState(t *testing.T) {
	l, _ := NewLoop(robustConfig(5))
	l.Tick(autoTick(400))
	snap := l.Tick(TickInput{LEDEnabled: true}) // no sample
	if !snap.Stale {
		t.Error("snapshot should be marked stale")
	}
	if snap.Filtered != 400 {
		t.Errorf("filtered = %v, want previous 400", snap.Filtered)
	}
	if snap.Raw != 400 {
		t.Errorf("raw = %v, want previous 400", snap.Raw)
	}
	// Stale ticks must not advance the window
	if l.WindowReady() {
		t.Error("window should not be full after one real sample")
	}
}

func TestTwoChannelAveraging(t *testing.T) {
	l, _ := NewLoop(robustConfig(5))
	snap := l.Tick(autoTick(100, 300))
	if snap.Raw != 200 {
		t.Errorf("raw = %v, want averaged 200", snap.Raw)
	}
}

func TestFractionUsesDefaultSpanBeforeReady(t *testing.T) {
	l, _ := NewLoop(robustConfig(100))
	snap := l.Tick(autoTick(500))
	if math.Abs(snap.Fraction-0.5) > 1e-9 {
		t.Errorf("fraction = %v, want 0.5 of default span", snap.Fraction)
	}
	if snap.Command.Source != arbiter.SourceAutomaticLux {
		t.Errorf("source = %s", snap.Command.Source)
	}
	if snap.Command.Code != 512 {
		t.Errorf("code = %d, want 512", snap.Command.Code)
	}
}

func TestOverridePrecedenceFlowsThroughLoop(t *testing.T) {
	l, _ := NewLoop(robustConfig(5))
	snap := l.Tick(TickInput{
		Samples:         []float64{800},
		OverrideEnabled: true,
		OverrideCode:    300,
		LEDEnabled:      false,
	})
	if snap.Command.Code != 300 || snap.Command.Source != arbiter.SourceManualOverride {
		t.Errorf("command = %+v, want override 300", snap.Command)
	}
}

func TestPhysicalOffThroughLoop(t *testing.T) {
	l, _ := NewLoop(robustConfig(5))
	snap := l.Tick(TickInput{Samples: []float64{800}, LEDEnabled: false, PotFraction: 1})
	if snap.Command.Code != 0 || snap.Command.Source != arbiter.SourceIdle {
		t.Errorf("command = %+v, want idle", snap.Command)
	}
}

func TestUnprimedLoopEmitsZeroFraction(t *testing.T) {
	l, _ := NewLoop(robustConfig(5))
	snap := l.Tick(TickInput{LEDEnabled: true})
	if snap.Fraction != 0 {
		t.Errorf("fraction = %v before any sample, want 0", snap.Fraction)
	}
	if snap.Command.Code != 0 {
		t.Errorf("code = %d before any sample, want 0", snap.Command.Code)
	}
}

func TestSafeCommand(t *testing.T) {
	cmd := SafeCommand()
	if cmd.Code != 0 || cmd.Source != arbiter.SourceIdle {
		t.Errorf("safe command = %+v", cmd)
	}
}

func TestOutlierDoesNotSpikeActuator(t *testing.T) {
	l, _ := NewLoop(robustConfig(50))
	for i := 0; i < 50; i++ {
		l.Tick(autoTick(100 + float64(i%5)))
	}
	before := l.Bounds()
	snap := l.Tick(autoTick(10000))
	after := snap.Bounds
	// The outlier is rejected by the MAD filter and only the 5% blend of an
	// inlier-derived estimate moves the bounds.
	if after.High > before.High+1 {
		t.Errorf("high jumped from %v to %v on a single outlier", before.High, after.High)
	}
}
