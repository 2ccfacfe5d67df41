// Package gpio drives step and direction lines through periph.io, for
// running the motion core on a Linux single-board computer.
package gpio

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/cpu"

	"stepmotion/core"
)

// Resolver maps a pin name such as "GPIO17" to a line
type Resolver func(name string) gpio.PinIO

// DigitalIO implements core.DigitalIO on periph lines
type DigitalIO struct {
	mu      sync.RWMutex
	resolve Resolver
	pins    map[core.Pin]gpio.PinIO
}

// New initialises the host drivers and resolves pins through gpioreg
func New() (*DigitalIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}
	return NewWithResolver(gpioreg.ByName), nil
}

// NewWithResolver uses an explicit resolver, e.g. gpiotest pins in tests
func NewWithResolver(r Resolver) *DigitalIO {
	return &DigitalIO{resolve: r, pins: make(map[core.Pin]gpio.PinIO)}
}

// PinName returns the gpioreg name of a pin number
func PinName(pin core.Pin) string {
	return "GPIO" + strconv.Itoa(int(pin))
}

// ConfigureOutput claims the line and drives it low
func (d *DigitalIO) ConfigureOutput(pin core.Pin) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pins[pin]; ok {
		return errors.Errorf("%s already configured", PinName(pin))
	}
	p := d.resolve(PinName(pin))
	if p == nil {
		return errors.Errorf("%s not found", PinName(pin))
	}
	if err := p.Out(gpio.Low); err != nil {
		return errors.Wrapf(err, "%s", PinName(pin))
	}
	d.pins[pin] = p
	return nil
}

// Set drives a configured line; unknown pins are ignored
func (d *DigitalIO) Set(pin core.Pin, high bool) {
	d.mu.RLock()
	p := d.pins[pin]
	d.mu.RUnlock()
	if p == nil {
		return
	}
	// Out only fails on an unconfigured line, which ConfigureOutput ruled out.
	_ = p.Out(gpio.Level(high))
}

// DelayMicroseconds spins for the direction settle time
func (d *DigitalIO) DelayMicroseconds(us uint32) {
	cpu.Nanospin(time.Duration(us) * time.Microsecond)
}
