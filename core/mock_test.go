package core

import (
	"testing"
)

// MockDigitalIO is a test implementation of DigitalIO
type MockDigitalIO struct {
	levels     map[Pin]bool
	rises      map[Pin]int
	configured map[Pin]bool
	delayUS    uint32
}

func NewMockDigitalIO() *MockDigitalIO {
	return &MockDigitalIO{
		levels:     make(map[Pin]bool),
		rises:      make(map[Pin]int),
		configured: make(map[Pin]bool),
	}
}

func (m *MockDigitalIO) ConfigureOutput(pin Pin) error {
	m.configured[pin] = true
	return nil
}

func (m *MockDigitalIO) Set(pin Pin, high bool) {
	if high && !m.levels[pin] {
		m.rises[pin]++
	}
	m.levels[pin] = high
}

func (m *MockDigitalIO) DelayMicroseconds(us uint32) {
	m.delayUS += us
}

// MockTimer records what the axis asks of it. Ticks are fired by the test.
type MockTimer struct {
	handler TickHandler
	running bool
	hz      uint32
	width   uint32
	pin     Pin
	ticks   int
}

func (m *MockTimer) SetPulseParams(widthUS uint32, pin Pin) {
	m.width = widthUS
	m.pin = pin
}

func (m *MockTimer) AttachCallbacks(h TickHandler) { m.handler = h }
func (m *MockTimer) Start()                        { m.running = true }
func (m *MockTimer) Stop()                         { m.running = false }
func (m *MockTimer) UpdateFrequency(hz uint32)     { m.hz = hz }

// fire runs one period: tick, then pulse reset
func (m *MockTimer) fire() {
	m.ticks++
	m.handler.OnTick()
	m.handler.OnPulseReset()
}

// MockTimerPool hands out MockTimers and counts acquisitions
type MockTimerPool struct {
	timers   []*MockTimer
	acquired int
	released int
	inUse    map[*MockTimer]bool
}

func NewMockTimerPool() *MockTimerPool {
	return &MockTimerPool{inUse: make(map[*MockTimer]bool)}
}

func (p *MockTimerPool) Acquire() PulseTimer {
	p.acquired++
	t := &MockTimer{}
	p.timers = append(p.timers, t)
	p.inUse[t] = true
	return t
}

func (p *MockTimerPool) Release(t PulseTimer) {
	mt := t.(*MockTimer)
	if !p.inUse[mt] {
		panic("timer released twice")
	}
	delete(p.inUse, mt)
	p.released++
}

// active returns a running timer, or nil when everything is idle
func (p *MockTimerPool) active() *MockTimer {
	for _, t := range p.timers {
		if t.running && p.inUse[t] {
			return t
		}
	}
	return nil
}

// step fires one tick on the active timer. Returns false when idle.
func (p *MockTimerPool) step() bool {
	t := p.active()
	if t == nil {
		return false
	}
	t.fire()
	return true
}

// runUntilIdle fires ticks until no timer runs
func (p *MockTimerPool) runUntilIdle(t *testing.T, limit int) int {
	t.Helper()
	for n := 0; n < limit; n++ {
		if !p.step() {
			return n
		}
	}
	t.Fatalf("Still moving after %d ticks", limit)
	return limit
}

type testRig struct {
	io   *MockDigitalIO
	pool *MockTimerPool
}

func newTestRig() *testRig {
	r := &testRig{io: NewMockDigitalIO(), pool: NewMockTimerPool()}
	SetDigitalIO(r.io)
	SetTimerPool(r.pool)
	return r
}

func (r *testRig) axis(t *testing.T, name string, step, dir Pin) *Axis {
	t.Helper()
	ax, err := NewAxis(name, step, dir)
	if err != nil {
		t.Fatalf("NewAxis failed: %v", err)
	}
	return ax
}

// tickUntil fires ticks until cond holds
func (r *testRig) tickUntil(t *testing.T, cond func() bool, limit int) {
	t.Helper()
	for n := 0; n < limit; n++ {
		if cond() {
			return
		}
		if !r.pool.step() {
			t.Fatalf("Axis went idle before condition held")
		}
	}
	t.Fatalf("Condition not met after %d ticks", limit)
}

func checkProfile(t *testing.T, p Profile) {
	t.Helper()
	if p.AccEnd < 0 || p.AccEnd >= p.DecStart || p.DecStart > p.STgt {
		t.Errorf("Malformed profile: accEnd=%d decStart=%d sTgt=%d", p.AccEnd, p.DecStart, p.STgt)
	}
}
