// Package lcd drives a 16x2 HD44780 character display behind a PCF8574 I2C
// backpack. It shows the active control mode and the live lux/pot value.
package lcd

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// PCF8574 backpack bit assignments.
const (
	bitRS        = 0x01
	bitEnable    = 0x04
	bitBacklight = 0x08
)

const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // increment, no shift
	cmdDisplayOn   = 0x0C
	cmdFunctionSet = 0x28 // 4-bit, 2 lines, 5x8 font
	cmdSetDDRAM    = 0x80
)

const (
	Cols = 16
	Rows = 2
)

type Display struct {
	bus       i2c.BusCloser
	dev       i2c.Dev
	backlight bool
}

func New(busName string, addr uint16) (*Display, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("lcd: open i2c bus: %w", err)
	}
	d := &Display{
		bus:       bus,
		dev:       i2c.Dev{Bus: bus, Addr: addr},
		backlight: true,
	}
	if err := d.init(); err != nil {
		bus.Close()
		return nil, err
	}
	return d, nil
}

// init brings the controller into 4-bit mode and configures the display.
func (d *Display) init() error {
	time.Sleep(50 * time.Millisecond)
	// Reset sequence per the HD44780 datasheet.
	for _, nib := range []byte{0x30, 0x30, 0x30, 0x20} {
		if err := d.pulse(nib); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}
	for _, cmd := range []byte{cmdFunctionSet, cmdDisplayOn, cmdClear, cmdEntryMode} {
		if err := d.command(cmd); err != nil {
			return err
		}
	}
	time.Sleep(2 * time.Millisecond)
	return nil
}

// Update rewrites both lines. Longer strings are truncated to the panel
// width, shorter ones padded so stale characters never linger.
func (d *Display) Update(line1, line2 string) error {
	if err := d.command(cmdSetDDRAM); err != nil {
		return err
	}
	if err := d.print(pad(line1)); err != nil {
		return err
	}
	// Second row starts at DDRAM address 0x40.
	if err := d.command(cmdSetDDRAM | 0x40); err != nil {
		return err
	}
	return d.print(pad(line2))
}

func (d *Display) Clear() error {
	if err := d.command(cmdClear); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)
	return nil
}

// Close blanks the panel and releases the bus.
func (d *Display) Close() error {
	if err := d.Clear(); err != nil {
		d.bus.Close()
		return err
	}
	d.backlight = false
	d.pulse(0)
	return d.bus.Close()
}

func (d *Display) print(s string) error {
	for _, b := range []byte(s) {
		if err := d.write(b, true); err != nil {
			return err
		}
	}
	return nil
}

func (d *Display) command(b byte) error {
	return d.write(b, false)
}

// write sends one byte as two 4-bit transfers.
func (d *Display) write(b byte, data bool) error {
	var rs byte
	if data {
		rs = bitRS
	}
	if err := d.pulse(b&0xF0 | rs); err != nil {
		return err
	}
	return d.pulse(b<<4&0xF0 | rs)
}

// pulse clocks one nibble into the controller via the enable line.
func (d *Display) pulse(b byte) error {
	if d.backlight {
		b |= bitBacklight
	}
	for _, out := range []byte{b | bitEnable, b} {
		if err := d.dev.Tx([]byte{out}, nil); err != nil {
			return fmt.Errorf("lcd: i2c write: %w", err)
		}
	}
	return nil
}

const spaces = "                "

func pad(s string) string {
	if len(s) > Cols {
		return s[:Cols]
	}
	return s + spaces[:Cols-len(s)]
}
