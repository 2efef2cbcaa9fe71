// Package serial wraps the serial port a remote TWI peripheral is
// attached to.
package serial

import (
	"io"
)

// Port represents a serial port interface. The abstraction allows for
// different implementations: native serial (github.com/tarm/serial) or
// an in-memory double for testing.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC adapters ignore this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the default configuration for a register link.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
