//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"

	"stepmotion/core"
)

// The TinyGo runtime sleeps on ALARM0, which leaves ALARM1-3 for step
// timers. Each pulse timer owns one alarm and alternates it between the
// tick edge and the pulse reset a pulse width later.
const numAlarmTimers = 3

// minPeriodUS keeps the tick after the pulse reset at any frequency
const minPeriodUS = core.PulseWidthUS + 4

var alarmRegs = [4]*volatile.Register32{
	&rp.TIMER.ALARM0,
	&rp.TIMER.ALARM1,
	&rp.TIMER.ALARM2,
	&rp.TIMER.ALARM3,
}

type alarmTimer struct {
	alarm    uint8
	inUse    bool
	running  bool
	inPulse  bool // next fire is the pulse reset
	periodUS uint32
	widthUS  uint32
	due      uint32 // time of the next tick
	handler  core.TickHandler
}

// alarmPool implements core.TimerPool on the RP2040 TIMER alarms
type alarmPool struct {
	timers [numAlarmTimers]alarmTimer
}

var pool alarmPool

// initAlarms registers the alarm interrupts. interrupt.New needs constant
// IRQ numbers, hence one handler per alarm.
func initAlarms() *alarmPool {
	for i := range pool.timers {
		pool.timers[i].alarm = uint8(i + 1)
	}
	irq1 := interrupt.New(rp.IRQ_TIMER_IRQ_1, func(interrupt.Interrupt) { pool.timers[0].fire() })
	irq2 := interrupt.New(rp.IRQ_TIMER_IRQ_2, func(interrupt.Interrupt) { pool.timers[1].fire() })
	irq3 := interrupt.New(rp.IRQ_TIMER_IRQ_3, func(interrupt.Interrupt) { pool.timers[2].fire() })
	for _, irq := range []interrupt.Interrupt{irq1, irq2, irq3} {
		irq.SetPriority(0x00)
		irq.Enable()
	}
	rp.TIMER.INTE.SetBits(0b1110)
	return &pool
}

func (p *alarmPool) Acquire() core.PulseTimer {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	for i := range p.timers {
		if !p.timers[i].inUse {
			p.timers[i].inUse = true
			return &p.timers[i]
		}
	}
	panic("alarm timers exhausted")
}

func (p *alarmPool) Release(pt core.PulseTimer) {
	t, ok := pt.(*alarmTimer)
	if !ok || !t.inUse {
		panic("release of a foreign or idle timer")
	}
	t.Stop()
	t.handler = nil
	t.inUse = false
}

func (t *alarmTimer) SetPulseParams(widthUS uint32, pin core.Pin) {
	t.widthUS = widthUS
}

func (t *alarmTimer) AttachCallbacks(h core.TickHandler) {
	t.handler = h
}

func (t *alarmTimer) Start() {
	if t.periodUS == 0 {
		t.UpdateFrequency(core.StartSpeed)
	}
	t.running = true
	t.inPulse = false
	t.due = nowUS() + t.periodUS
	t.arm(t.due)
}

func (t *alarmTimer) Stop() {
	t.running = false
	// Writing 1 to ARMED disarms the alarm
	rp.TIMER.ARMED.Set(1 << t.alarm)
	rp.TIMER.INTR.Set(1 << t.alarm)
}

func (t *alarmTimer) UpdateFrequency(hz uint32) {
	if hz == 0 {
		hz = 1
	}
	t.periodUS = max(1000000/hz, minPeriodUS)
}

func (t *alarmTimer) arm(at uint32) {
	alarmRegs[t.alarm].Set(at)
}

// fire runs in interrupt context
func (t *alarmTimer) fire() {
	rp.TIMER.INTR.Set(1 << t.alarm)
	if !t.running || t.handler == nil {
		return
	}

	if t.inPulse {
		t.inPulse = false
		t.handler.OnPulseReset()
		if t.running {
			t.arm(t.due)
		}
		return
	}

	t.handler.OnTick()
	if !t.running {
		return
	}
	now := nowUS()
	t.due += t.periodUS
	// A long tick or a frequency jump can leave the schedule behind
	if int32(t.due-now) < int32(t.widthUS+2) {
		t.due = now + t.periodUS
	}
	t.inPulse = true
	t.arm(now + t.widthUS)
}
