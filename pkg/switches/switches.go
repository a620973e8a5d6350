// Package switches reads the two physical toggle switches. The switches are
// wired to ground through pull-ups, so the electrical level is inverted: LOW
// means engaged. That polarity stays inside this package; callers only ever
// see normalized booleans (true = engaged).
package switches

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// State is one polarity-normalized reading of both switches.
type State struct {
	LEDEnabled bool // actuator-enable switch engaged
	PotMode    bool // mode switch set to potentiometer/manual-analog
}

type Switches struct {
	modePin   gpio.PinIn
	enablePin gpio.PinIn
}

func New(modePinName, enablePinName string) (*Switches, error) {
	mode, err := openInput(modePinName)
	if err != nil {
		return nil, err
	}
	enable, err := openInput(enablePinName)
	if err != nil {
		return nil, err
	}
	return &Switches{modePin: mode, enablePin: enable}, nil
}

func openInput(name string) (gpio.PinIn, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("switches: pin %q not found", name)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("switches: configure pin %q: %w", name, err)
	}
	return pin, nil
}

// Read samples both pins. Never blocks.
func (s *Switches) Read() State {
	return State{
		LEDEnabled: s.enablePin.Read() == gpio.Low,
		PotMode:    s.modePin.Read() == gpio.Low,
	}
}
