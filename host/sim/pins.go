package sim

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"stepmotion/core"
)

// Pins is a recording core.DigitalIO. It keeps the level of every output
// and counts rising edges, which is the number of step pulses on a step pin.
type Pins struct {
	mu         sync.Mutex
	configured map[core.Pin]bool
	levels     map[core.Pin]bool
	rises      map[core.Pin]int
	settle     time.Duration
}

// NewPins creates an empty pin bank
func NewPins() *Pins {
	return &Pins{
		configured: make(map[core.Pin]bool),
		levels:     make(map[core.Pin]bool),
		rises:      make(map[core.Pin]int),
	}
}

// ConfigureOutput implements core.DigitalIO. A pin can be claimed once.
func (p *Pins) ConfigureOutput(pin core.Pin) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.configured[pin] {
		return errors.Errorf("sim: pin %d already configured", pin)
	}
	p.configured[pin] = true
	return nil
}

// Set implements core.DigitalIO
func (p *Pins) Set(pin core.Pin, high bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if high && !p.levels[pin] {
		p.rises[pin]++
	}
	p.levels[pin] = high
}

// DelayMicroseconds implements core.DigitalIO. Virtual time is not
// advanced; the delay is only accumulated.
func (p *Pins) DelayMicroseconds(us uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settle += time.Duration(us) * time.Microsecond
}

// Level returns the current level of a pin
func (p *Pins) Level(pin core.Pin) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[pin]
}

// Pulses returns the number of rising edges seen on a pin
func (p *Pins) Pulses(pin core.Pin) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rises[pin]
}

// Settle returns the total direction settling delay requested
func (p *Pins) Settle() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settle
}
