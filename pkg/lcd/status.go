package lcd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skohler/chamber-pi/pkg/arbiter"
	"github.com/skohler/chamber-pi/pkg/control"
)

// StatusLines formats a snapshot into the two panel rows.
func StatusLines(snap control.Snapshot) (string, string) {
	var mode string
	switch snap.Command.Source {
	case arbiter.SourceManualOverride:
		mode = "Mode: WEB CTRL"
	case arbiter.SourceIdle:
		mode = "Mode: OFF"
	case arbiter.SourceAutomaticPot:
		mode = "Mode: ANALOG"
	default:
		mode = "Mode: LUX"
	}
	if snap.Command.Source == arbiter.SourceAutomaticPot {
		return mode, fmt.Sprintf("Pot:%.3f", snap.PotFraction)
	}
	return mode, fmt.Sprintf("Lux:%.1f", snap.Raw)
}

// Runner refreshes the panel from the snapshot stream at the given interval.
// Display errors are logged and skipped; a flaky panel must not take the
// controller down.
func Runner(ctx context.Context, d *Display, interval time.Duration, input <-chan control.Snapshot) func() error {
	return func() error {
		t := time.NewTicker(interval)
		defer t.Stop()
		var last control.Snapshot
		have := false
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-input:
				if !ok {
					return nil
				}
				last = snap
				have = true
			case <-t.C:
				if !have {
					continue
				}
				line1, line2 := StatusLines(last)
				if err := d.Update(line1, line2); err != nil {
					slog.Warn("lcd update failed", "error", err, "module", "lcd")
				}
			}
		}
	}
}
