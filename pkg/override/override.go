// Package override holds the remote manual-override state shared between the
// web/MQTT handlers and the control loop.
package override

import "sync"

// State is the override pair read by the control loop. Enabled and Code are
// always observed together.
type State struct {
	Enabled bool `json:"enabled"`
	Code    int  `json:"pwm"`
}

// Register is a single-writer-at-a-time register with atomic snapshots. Web
// handlers set it from their own goroutines; the control loop reads one
// consistent State per tick.
type Register struct {
	mu    sync.Mutex
	state State
}

func NewRegister() *Register {
	return &Register{}
}

// Set stores both fields in one critical section so a reader can never see
// the flag without its value.
func (r *Register) Set(enabled bool, code int) {
	r.mu.Lock()
	r.state = State{Enabled: enabled, Code: code}
	r.mu.Unlock()
}

func (r *Register) Get() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
