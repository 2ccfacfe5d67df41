//go:build !tinygo

package core

import "sync"

// critical serializes control-path calls against timer callbacks.
// On regular Go the simulated timers run on other goroutines, so a mutex
// stands in for interrupt masking.
type critical struct {
	mu sync.Mutex
}

func (c *critical) enter() { c.mu.Lock() }

func (c *critical) exit() { c.mu.Unlock() }

// enterTick/exitTick guard the tick and pulse-reset handlers.
func (c *critical) enterTick() { c.mu.Lock() }

func (c *critical) exitTick() { c.mu.Unlock() }
