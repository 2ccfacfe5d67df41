//go:build tinygo

package core

import "runtime/interrupt"

// critical masks interrupts around control-path updates so a tick never
// observes a half-written profile.
type critical struct {
	state interrupt.State
}

func (c *critical) enter() { c.state = interrupt.Disable() }

func (c *critical) exit() { interrupt.Restore(c.state) }

// Tick handlers already run in interrupt context.
func (c *critical) enterTick() {}

func (c *critical) exitTick() {}
