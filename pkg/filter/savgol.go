package filter

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay smooths by convolving the trailing window with precomputed
// least-squares polynomial coefficients. While warming up it returns the
// running arithmetic mean.
type SavitzkyGolay struct {
	coeffs []float64
	window []float64
	width  int
}

func newSavitzkyGolay(width, order int) (*SavitzkyGolay, error) {
	if width <= 0 {
		return nil, fmt.Errorf("filter: sg window width must be positive, got %d", width)
	}
	if width%2 == 0 {
		return nil, fmt.Errorf("filter: sg window width must be odd, got %d", width)
	}
	if order < 0 || order >= width {
		return nil, fmt.Errorf("filter: sg order %d invalid for window width %d", order, width)
	}
	return &SavitzkyGolay{
		coeffs: savgolCoefficients(width, order),
		window: make([]float64, 0, width),
		width:  width,
	}, nil
}

// savgolCoefficients solves the normal equations of the Vandermonde design
// matrix over the centered index set {-(w-1)/2 .. (w-1)/2}. A singular matrix
// degrades to uniform weights rather than surfacing an error.
func savgolCoefficients(width, order int) []float64 {
	half := (width - 1) / 2
	a := mat.NewDense(width, order+1, nil)
	for r := 0; r < width; r++ {
		j := float64(r - half)
		v := 1.0
		for p := 0; p <= order; p++ {
			a.Set(r, p, v)
			v *= j
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return uniformWeights(width)
	}

	var b mat.Dense
	b.Mul(&inv, a.T())
	coeffs := make([]float64, width)
	mat.Row(coeffs, 0, &b)
	return coeffs
}

func uniformWeights(width int) []float64 {
	w := make([]float64, width)
	for i := range w {
		w[i] = 1 / float64(width)
	}
	return w
}

func (s *SavitzkyGolay) Process(value float64) float64 {
	if len(s.window) == s.width {
		s.window = append(s.window[1:], value)
	} else {
		s.window = append(s.window, value)
	}

	if len(s.window) < s.width {
		sum := 0.0
		for _, v := range s.window {
			sum += v
		}
		return sum / float64(len(s.window))
	}

	out := 0.0
	for i, c := range s.coeffs {
		out += c * s.window[i]
	}
	return out
}
