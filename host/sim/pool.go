// Package sim provides a virtual-time implementation of the motion engine's
// hardware boundary, so axes can be driven on a host without timers or pins.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stepmotion/core"
)

// Pool is a fixed set of virtual pulse timers sharing one virtual clock.
// Callbacks run on the goroutine that advances the clock, never under the
// pool lock, so a handler may stop or release its own timer.
type Pool struct {
	mu     sync.Mutex
	timers []*Timer
	now    time.Duration
	ticks  uint64

	acquired int
	released int

	logger *zap.SugaredLogger
}

// NewPool creates a pool of n timers. A nil logger disables logging.
func NewPool(n int, logger *zap.SugaredLogger) *Pool {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	p := &Pool{logger: logger}
	for i := 0; i < n; i++ {
		p.timers = append(p.timers, &Timer{pool: p, id: i})
	}
	return p
}

// Acquire implements core.TimerPool. The pool is assumed large enough for
// every axis that can move at once; running out is a configuration error.
func (p *Pool) Acquire() core.PulseTimer {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.timers {
		if !t.inUse {
			t.inUse = true
			t.gen++
			p.acquired++
			p.logger.Debugw("timer acquired", "timer", t.id, "at", p.now)
			return t
		}
	}
	panic(errors.Errorf("sim: all %d timers in use", len(p.timers)))
}

// Release implements core.TimerPool
func (p *Pool) Release(pt core.PulseTimer) {
	t, ok := pt.(*Timer)
	if !ok || t.pool != p {
		panic(errors.New("sim: releasing a foreign timer"))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !t.inUse {
		panic(errors.Errorf("sim: timer %d released twice", t.id))
	}
	t.inUse = false
	t.running = false
	t.handler = nil
	t.period = 0
	t.gen++
	p.released++
	p.logger.Debugw("timer released", "timer", t.id, "at", p.now, "ticks", t.ticks)
}

// Now returns the virtual time
func (p *Pool) Now() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

// Stats is a snapshot of pool usage
type Stats struct {
	Timers   int
	InUse    int
	Running  int
	Acquired int
	Released int
	Ticks    uint64
	Now      time.Duration
}

// Stats returns a snapshot of pool usage
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{
		Timers:   len(p.timers),
		Acquired: p.acquired,
		Released: p.released,
		Ticks:    p.ticks,
		Now:      p.now,
	}
	for _, t := range p.timers {
		if t.inUse {
			s.InUse++
		}
		if t.running {
			s.Running++
		}
	}
	return s
}

// Idle reports whether no timer is running
func (p *Pool) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next() == nil
}

// next returns the running timer due first. Caller holds mu.
func (p *Pool) next() *Timer {
	var due *Timer
	for _, t := range p.timers {
		if !t.running {
			continue
		}
		if due == nil || t.due < due.due {
			due = t
		}
	}
	return due
}

// Step advances the clock to the earliest due timer and fires it.
// It returns false when no timer is running.
func (p *Pool) Step() bool {
	return p.stepBefore(-1)
}

// stepBefore fires the earliest timer due at or before limit (any timer
// when limit is negative).
func (p *Pool) stepBefore(limit time.Duration) bool {
	p.mu.Lock()
	t := p.next()
	if t == nil || (limit >= 0 && t.due > limit) {
		p.mu.Unlock()
		return false
	}
	p.now = t.due
	p.ticks++
	t.ticks++
	h, gen := t.handler, t.gen
	p.mu.Unlock()

	h.OnTick()
	// The pulse ends even when the control path released or restarted
	// the timer while OnTick ran; a pulse left high would hide the next
	// rising edge.
	h.OnPulseReset()

	p.mu.Lock()
	if t.gen == gen && t.running {
		t.due = p.now + t.period
	}
	p.mu.Unlock()
	return true
}

// RunUntilIdle fires ticks until every timer has stopped. It fails if the
// limit is reached first, which is what an endless rotation does.
func (p *Pool) RunUntilIdle(limit int) (int, error) {
	for n := 0; n < limit; n++ {
		if !p.Step() {
			return n, nil
		}
	}
	if p.Idle() {
		return limit, nil
	}
	return limit, errors.Errorf("sim: still running after %d ticks", limit)
}

// AdvanceTo fires every tick due up to the virtual time d and then moves
// the clock to d. It returns the number of ticks fired.
func (p *Pool) AdvanceTo(d time.Duration) int {
	n := 0
	for p.stepBefore(d) {
		n++
	}
	p.mu.Lock()
	if d > p.now {
		p.now = d
	}
	p.mu.Unlock()
	return n
}

// Run paces the virtual clock against the wall clock until ctx is done.
// rate scales virtual time: 1 is real time, 0.1 is ten times slower.
func (p *Pool) Run(ctx context.Context, rate float64, frame time.Duration) error {
	if rate <= 0 {
		return errors.Errorf("sim: invalid rate %v", rate)
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	wall0 := time.Now()
	virt0 := p.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := time.Duration(float64(now.Sub(wall0)) * rate)
			p.AdvanceTo(virt0 + elapsed)
		}
	}
}

// Timer is one virtual pulse timer
type Timer struct {
	pool *Pool
	id   int
	gen  uint64

	inUse   bool
	running bool
	period  time.Duration
	due     time.Duration
	width   uint32
	pin     core.Pin
	handler core.TickHandler
	ticks   uint64
}

// ID returns the timer index within its pool
func (t *Timer) ID() int { return t.id }

// SetPulseParams implements core.PulseTimer
func (t *Timer) SetPulseParams(widthUS uint32, pin core.Pin) {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	t.width = widthUS
	t.pin = pin
}

// AttachCallbacks implements core.PulseTimer
func (t *Timer) AttachCallbacks(h core.TickHandler) {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	t.handler = h
}

// Start implements core.PulseTimer. The first tick is one period away.
func (t *Timer) Start() {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	if t.handler == nil {
		panic(errors.Errorf("sim: timer %d started without callbacks", t.id))
	}
	if t.period == 0 {
		t.period = time.Second / core.StartSpeed
	}
	t.gen++
	t.running = true
	t.due = t.pool.now + t.period
}

// Stop implements core.PulseTimer
func (t *Timer) Stop() {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	t.running = false
}

// UpdateFrequency implements core.PulseTimer. The new period applies from
// the next tick on.
func (t *Timer) UpdateFrequency(hz uint32) {
	if hz == 0 {
		hz = 1
	}
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	t.period = time.Second / time.Duration(hz)
}

// Frequency returns the current tick rate
func (t *Timer) Frequency() uint32 {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	if t.period == 0 {
		return 0
	}
	return uint32(time.Second / t.period)
}
