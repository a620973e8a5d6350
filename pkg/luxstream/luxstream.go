// Package luxstream reads ambient-light packets from the UART link to the
// sensor board. Each line is `timestamp,lux1,lux2`; the two lux channels are
// delivered together and averaged downstream.
package luxstream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// OpenPort opens the serial device delivering lux packets.
func OpenPort(name string, baud int) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("luxstream: open %s: %w", name, err)
	}
	return port, nil
}

// Channel returns a buffered channel of lux sub-reading pairs and the reader
// goroutine feeding it. Malformed lines are logged and skipped; they never
// stop the reader. The channel closes when the port reaches EOF or the
// context is cancelled.
func Channel(ctx context.Context, port io.Reader) (<-chan []float64, func() error) {
	c := make(chan []float64, 1)
	return c, func() error {
		defer close(c)
		scanner := bufio.NewScanner(port)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			lux1, lux2, err := Parse(line)
			if err != nil {
				slog.Warn("discarding malformed lux packet", "line", line, "error", err, "module", "luxstream")
				continue
			}
			slog.Debug("lux packet", "lux1", lux1, "lux2", lux2, "module", "luxstream")
			// Keep only the freshest pair if the consumer is mid-tick.
			select {
			case c <- []float64{lux1, lux2}:
			default:
				select {
				case <-c:
				default:
				}
				select {
				case c <- []float64{lux1, lux2}:
				default:
				}
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("luxstream: read: %w", err)
		}
		return nil
	}
}

// Parse extracts the two lux channels from a `timestamp,lux1,lux2` packet.
func Parse(line string) (float64, float64, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("want 3 fields, got %d", len(parts))
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64); err != nil {
		return 0, 0, fmt.Errorf("bad timestamp %q: %w", parts[0], err)
	}
	lux1, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad lux1 %q: %w", parts[1], err)
	}
	lux2, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad lux2 %q: %w", parts[2], err)
	}
	return lux1, lux2, nil
}
