// Package normalize maps a filtered signal value and its current bounds to a
// clamped [0,1] fraction and on to an integer actuator code.
package normalize

import (
	"math"

	"github.com/skohler/chamber-pi/pkg/bounds"
)

// Fraction maps value into [0,1] relative to b. The tracker guarantees a
// non-degenerate span upstream, so the divisor is never zero.
func Fraction(value float64, b bounds.Bounds) float64 {
	f := (value - b.Low) / b.Span()
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Code scales fraction to an integer in [0, maxCode]. The clamp guards
// against floating-point edge cases at the boundary.
func Code(fraction float64, maxCode int) int {
	code := int(math.Round(fraction * float64(maxCode)))
	if code < 0 {
		return 0
	}
	if code > maxCode {
		return maxCode
	}
	return code
}
