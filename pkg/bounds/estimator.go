package bounds

import (
	"fmt"
	"math"
	"sort"
)

type Strategy string

const (
	StrategySimple Strategy = "simple"
	StrategyRobust Strategy = "robust"
)

// Estimator produces candidate bounds from a window snapshot. Implementations
// are stateless; persistence lives in the Tracker.
type Estimator interface {
	Estimate(samples []float64) Bounds
	// Blending reports whether results should be blended into the tracker
	// rather than replacing it.
	Blending() bool
}

func NewEstimator(strategy Strategy, sigmaMultiplier float64) (Estimator, error) {
	switch strategy {
	case StrategySimple:
		return SimpleExtrema{}, nil
	case StrategyRobust:
		if sigmaMultiplier <= 0 {
			return nil, fmt.Errorf("bounds: sigma multiplier must be positive, got %g", sigmaMultiplier)
		}
		return RobustMAD{SigmaMultiplier: sigmaMultiplier}, nil
	default:
		return nil, fmt.Errorf("bounds: unknown strategy %q", strategy)
	}
}

// SimpleExtrema takes the raw window minimum and maximum.
type SimpleExtrema struct{}

func (SimpleExtrema) Blending() bool { return false }

func (SimpleExtrema) Estimate(samples []float64) Bounds {
	if len(samples) == 0 {
		return Bounds{}
	}
	low, high := samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return Bounds{Low: low, High: high}
}

// madConsistency makes MAD a consistent estimator of the standard deviation
// for normally distributed data.
const madConsistency = 1.4826

// RobustMAD rejects outliers beyond SigmaMultiplier robust standard
// deviations from the median and returns the extremes of the inlier set.
type RobustMAD struct {
	SigmaMultiplier float64
}

func (RobustMAD) Blending() bool { return true }

func (r RobustMAD) Estimate(samples []float64) Bounds {
	if len(samples) == 0 {
		return Bounds{}
	}

	med := median(samples)

	dev := make([]float64, len(samples))
	for i, v := range samples {
		dev[i] = math.Abs(v - med)
	}
	mad := median(dev)
	sigma := madConsistency * mad

	if sigma < 1e-9 {
		// Near-zero spread: every sample is effectively identical, there
		// are no outliers to reject.
		return SimpleExtrema{}.Estimate(samples)
	}

	threshold := r.SigmaMultiplier * sigma
	low, high := math.Inf(1), math.Inf(-1)
	inliers := 0
	for _, v := range samples {
		if math.Abs(v-med) > threshold {
			continue
		}
		inliers++
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	if inliers == 0 {
		return Bounds{Low: med, High: med}
	}
	return Bounds{Low: low, High: high}
}

// median uses the midpoint convention: an even-length input yields the mean
// of the two middle elements.
func median(data []float64) float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
