// Package watchdog forces the LED channel to a safe state when the lux
// stream goes quiet, so a dead sensor link cannot leave the lights frozen at
// an arbitrary brightness.
package watchdog

import (
	"context"
	"log/slog"
	"time"
)

// New returns a runner that watches input for activity. If a full interval
// passes without a value, safeOff is invoked. The runner exits when ctx is
// cancelled or input closes.
func New[T any](ctx context.Context, interval time.Duration, safeOff func() error, input <-chan T) func() error {
	return func() error {
		t := time.NewTicker(interval)
		defer t.Stop()
		awake := true
		slog.Debug("watchdog started", "timeout", interval, "module", "watchdog")
		for {
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-input:
				if !ok {
					return nil
				}
				awake = true
			case <-t.C:
				if !awake {
					slog.Error("no lux readings within timeout, forcing led off", "timeout", interval, "module", "watchdog")
					if err := safeOff(); err != nil {
						return err
					}
				}
				awake = false
			}
		}
	}
}
