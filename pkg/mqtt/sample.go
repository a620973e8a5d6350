package mqtt

// Sample rate-limits publishing to every rate-th call.
type Sample struct {
	count int
	rate  int
}

func NewSample(rate int) *Sample {
	return &Sample{rate: rate}
}

func (s *Sample) Ready() bool {
	s.count++
	if s.count%s.rate == 0 {
		s.count = 0
		return true
	}
	return false
}
