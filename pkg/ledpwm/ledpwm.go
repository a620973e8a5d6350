// Package ledpwm drives the chamber LED channel with hardware PWM.
package ledpwm

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// LED maps actuator codes in [0, maxCode] linearly onto PWM duty cycle.
type LED struct {
	freq    physic.Frequency
	pin     gpio.PinOut
	maxCode int
	mu      sync.Mutex
	code    int
}

func New(pinName string, maxCode int) (*LED, error) {
	if maxCode <= 0 {
		return nil, fmt.Errorf("ledpwm: max code must be positive, got %d", maxCode)
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("ledpwm: pin %q not found", pinName)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("ledpwm: init pin %q low: %w", pinName, err)
	}
	return &LED{
		freq:    5 * physic.KiloHertz,
		pin:     pin,
		maxCode: maxCode,
	}, nil
}

// Set applies an actuator code. Codes outside [0, maxCode] are clamped.
func (l *LED) Set(code int) error {
	if code < 0 {
		code = 0
	}
	if code > l.maxCode {
		code = l.maxCode
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.code = code
	duty := gpio.Duty(float64(gpio.DutyMax) * float64(code) / float64(l.maxCode))
	if err := l.pin.PWM(duty, l.freq); err != nil {
		return fmt.Errorf("ledpwm: set pwm: %w", err)
	}
	return nil
}

// SafeOff drives the channel to zero. Used on shutdown and by the watchdog.
func (l *LED) SafeOff() error {
	slog.Debug("led safe off", "module", "ledpwm")
	return l.Set(0)
}

// Code returns the last applied actuator code.
func (l *LED) Code() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.code
}
