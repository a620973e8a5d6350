// Package mcp3008 reads the manual potentiometer through an MCP3008 10-bit
// ADC on the SPI bus.
package mcp3008

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

const maxRaw = 1023

type ADC struct {
	conn    spi.Conn
	port    spi.PortCloser
	channel int
}

func New(busName string, channel int) (*ADC, error) {
	if channel < 0 || channel > 7 {
		return nil, fmt.Errorf("mcp3008: channel must be 0-7, got %d", channel)
	}
	port, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("mcp3008: open spi bus: %w", err)
	}
	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("mcp3008: connect: %w", err)
	}
	return &ADC{conn: conn, port: port, channel: channel}, nil
}

// Read performs one single-ended conversion. It returns the raw 10-bit value
// and its fraction of full scale.
func (a *ADC) Read() (int, float64, error) {
	// Start bit, single-ended channel select, one clocking byte.
	tx := []byte{1, byte(8+a.channel) << 4, 0}
	rx := make([]byte, 3)
	if err := a.conn.Tx(tx, rx); err != nil {
		return 0, 0, fmt.Errorf("mcp3008: transfer: %w", err)
	}
	raw := int(rx[1]&3)<<8 | int(rx[2])
	return raw, float64(raw) / maxRaw, nil
}

func (a *ADC) Close() error {
	return a.port.Close()
}
