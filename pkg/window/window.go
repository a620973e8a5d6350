// Package window provides a fixed-capacity rolling buffer of sensor samples.
package window

import "fmt"

// SampleWindow keeps the most recent samples in arrival order, evicting the
// oldest once capacity is reached. It is owned by a single control loop and
// is not safe for concurrent use.
type SampleWindow struct {
	buf   []float64
	head  int
	count int
}

func New(capacity int) (*SampleWindow, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("window: capacity must be positive, got %d", capacity)
	}
	return &SampleWindow{buf: make([]float64, capacity)}, nil
}

// Push appends a sample, dropping the oldest one when the window is full.
func (w *SampleWindow) Push(value float64) {
	w.buf[w.head] = value
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Snapshot returns the current contents oldest-first. The returned slice is
// a copy so later pushes do not mutate it under the caller.
func (w *SampleWindow) Snapshot() []float64 {
	out := make([]float64, w.count)
	if w.count < len(w.buf) {
		copy(out, w.buf[:w.count])
		return out
	}
	n := copy(out, w.buf[w.head:])
	copy(out[n:], w.buf[:w.head])
	return out
}

// Full reports whether eviction has begun, i.e. whether the window holds a
// statistically trustworthy number of samples.
func (w *SampleWindow) Full() bool {
	return w.count == len(w.buf)
}

func (w *SampleWindow) Len() int {
	return w.count
}

func (w *SampleWindow) Cap() int {
	return len(w.buf)
}
