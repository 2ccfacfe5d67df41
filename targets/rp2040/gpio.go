//go:build rp2040

package main

import (
	"machine"

	"stepmotion/core"
)

// numGPIO is the number of user GPIOs on the RP2040
const numGPIO = 30

// gpioIO drives step and direction lines as plain outputs
type gpioIO struct {
	configured [numGPIO]bool
}

func (g *gpioIO) ConfigureOutput(pin core.Pin) error {
	if pin >= numGPIO {
		return errPinRange
	}
	if g.configured[pin] {
		return errPinInUse
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	g.configured[pin] = true
	return nil
}

func (g *gpioIO) Set(pin core.Pin, high bool) {
	machine.Pin(pin).Set(high)
}

func (g *gpioIO) DelayMicroseconds(us uint32) {
	busyWaitUS(us)
}
