package serial

import (
	"io"
)

// Port is a serial line to a TMC driver bus or a motion controller console
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// TMCConfig returns the settings for a TMC2209 single-wire UART bus
func TMCConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// ConsoleConfig returns the settings for a USB CDC console, where the baud
// rate is ignored by the device
func ConsoleConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 0,
	}
}
