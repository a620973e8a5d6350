package filter

import (
	"math"
	"testing"
)

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{Kind: "bogus"},
		{Kind: KindMovingAverage, Window: 0},
		{Kind: KindMovingAverage, Window: -5},
		{Kind: KindExponential, Alpha: 0},
		{Kind: KindExponential, Alpha: 1.5},
		{Kind: KindSavitzkyGolay, Window: 10, Order: 3}, // even width
		{Kind: KindSavitzkyGolay, Window: 5, Order: 5},  // order >= width
		{Kind: KindSavitzkyGolay, Window: -1, Order: 1},
	}
	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}

func TestPassthrough(t *testing.T) {
	f, err := New(Config{Kind: KindNone})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []float64{0, -12.5, 99999} {
		if got := f.Process(v); got != v {
			t.Errorf("Process(%v) = %v", v, got)
		}
	}
}

func TestMovingAverageWarmup(t *testing.T) {
	f, err := New(Config{Kind: KindMovingAverage, Window: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Process(10); got != 10 {
		t.Errorf("first sample mean = %v, want 10", got)
	}
	if got := f.Process(20); got != 15 {
		t.Errorf("second sample mean = %v, want 15", got)
	}
	if got := f.Process(30); got != 20 {
		t.Errorf("third sample mean = %v, want 20", got)
	}
	// Window full, oldest evicted
	if got := f.Process(40); got != 30 {
		t.Errorf("fourth sample mean = %v, want 30", got)
	}
}

func TestExponentialPrimesOnFirstSample(t *testing.T) {
	f, _ := New(Config{Kind: KindExponential, Alpha: 0.1})
	if got := f.Process(42); got != 42 {
		t.Errorf("first sample = %v, want 42", got)
	}
	got := f.Process(52)
	want := 0.1*52 + 0.9*42
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("second sample = %v, want %v", got, want)
	}
}

func TestExponentialConvergesToConstant(t *testing.T) {
	f, _ := New(Config{Kind: KindExponential, Alpha: 0.2})
	f.Process(0)
	var got float64
	// error decays by (1-alpha) each step: 0.8^n < 1e-6 within 62 steps
	for i := 0; i < 62; i++ {
		got = f.Process(100)
	}
	if math.Abs(got-100) > 1e-4 {
		t.Errorf("ema did not converge: %v", got)
	}
}

func TestSavitzkyGolayWarmupIsRunningMean(t *testing.T) {
	f, err := New(Config{Kind: KindSavitzkyGolay, Window: 5, Order: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Process(4); got != 4 {
		t.Errorf("warmup[0] = %v, want 4", got)
	}
	if got := f.Process(8); got != 6 {
		t.Errorf("warmup[1] = %v, want 6", got)
	}
	if got := f.Process(12); got != 8 {
		t.Errorf("warmup[2] = %v, want 8", got)
	}
}

func TestSavitzkyGolayReproducesPolynomialCenter(t *testing.T) {
	// For data lying exactly on a low-order polynomial the smoothed output
	// is the fit evaluated at the window center.
	f, err := New(Config{Kind: KindSavitzkyGolay, Window: 5, Order: 2})
	if err != nil {
		t.Fatal(err)
	}
	var got float64
	for i := 0; i < 9; i++ {
		got = f.Process(float64(2 * i)) // linear ramp 0,2,4,...
	}
	// Window holds samples for i=4..8, center is i=6 -> value 12
	if math.Abs(got-12) > 1e-9 {
		t.Errorf("sg output = %v, want 12", got)
	}
}

func TestSavitzkyGolayConstantSignal(t *testing.T) {
	f, _ := New(Config{Kind: KindSavitzkyGolay, Window: 7, Order: 3})
	var got float64
	for i := 0; i < 20; i++ {
		got = f.Process(55)
	}
	if math.Abs(got-55) > 1e-9 {
		t.Errorf("sg constant output = %v, want 55", got)
	}
}

func TestSavitzkyGolayDegenerateMatrixFallsBack(t *testing.T) {
	// A near-maximal polynomial order makes the normal equations numerically
	// singular; construction must still succeed with uniform weights.
	f, err := New(Config{Kind: KindSavitzkyGolay, Window: 31, Order: 30})
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	// Warm-up output is still the running mean regardless of coefficients.
	if got := f.Process(10); got != 10 {
		t.Errorf("warmup = %v, want 10", got)
	}
	if got := f.Process(20); got != 15 {
		t.Errorf("warmup = %v, want 15", got)
	}
}

func TestUniformWeightsSumToOne(t *testing.T) {
	w := uniformWeights(9)
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("uniform weights sum = %v", sum)
	}
}
