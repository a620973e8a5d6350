// Package arbiter selects the actuator command for a tick from the manual
// override, the physical switches and the normalized automatic signals.
package arbiter

import "github.com/skohler/chamber-pi/pkg/normalize"

// Source identifies which arbitration branch produced a command.
type Source string

const (
	SourceManualOverride Source = "manual_override"
	SourceIdle           Source = "idle"
	SourceAutomaticPot   Source = "automatic_pot"
	SourceAutomaticLux   Source = "automatic_lux"
)

// Command is one actuator duty code plus its origin. Produced fresh every
// tick; it has no persistent identity.
type Command struct {
	Code   int    `json:"code"`
	Source Source `json:"source"`
}

// Inputs are the arbiter's view of one tick. Switch booleans are already
// polarity-normalized (true = engaged); the override pair is an atomic
// snapshot supplied by its register.
type Inputs struct {
	OverrideEnabled bool
	OverrideCode    int
	LEDEnabled      bool // physical actuator-enable switch
	PotMode         bool // physical mode switch: potentiometer vs lux
	LuxFraction     float64
	PotFraction     float64
}

// Decide applies the fixed precedence: override > physical-off > mode-select.
// A remote operator keeps control even with the enable switch off. The
// arbiter is stateless; transitions happen freshly every tick.
func Decide(in Inputs, maxCode int) Command {
	switch {
	case in.OverrideEnabled:
		return Command{Code: clampCode(in.OverrideCode, maxCode), Source: SourceManualOverride}
	case !in.LEDEnabled:
		return Command{Code: 0, Source: SourceIdle}
	case in.PotMode:
		return Command{Code: normalize.Code(in.PotFraction, maxCode), Source: SourceAutomaticPot}
	default:
		return Command{Code: normalize.Code(in.LuxFraction, maxCode), Source: SourceAutomaticLux}
	}
}

func clampCode(code, maxCode int) int {
	if code < 0 {
		return 0
	}
	if code > maxCode {
		return maxCode
	}
	return code
}
