//go:build rp2040

package main

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"stepmotion/core"
)

var (
	errPinRange = errors.New("pin out of range")
	errPinInUse = errors.New("pin already configured")
	errNoPIO    = errors.New("no free PIO state machine")
)

// pulseProgram emits one step pulse per FIFO word. At a 1MHz state machine
// clock the high phase lasts PulseWidthUS.
func pulseProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                                       // 0: pull block
		asm.Set(rp2pio.SetDestPins, 1).Delay(core.PulseWidthUS - 1).Encode(), // 1: set pins, 1 [7]
		asm.Set(rp2pio.SetDestPins, 0).Encode(),                              // 2: set pins, 0
		// .wrap
	}
}

const pulseOrigin = 0

var (
	// RP2040 has 2 PIO blocks with 4 state machines each
	pioAllocations = [2][4]bool{}
	nextPIONum     = uint8(0)
	nextSMNum      = uint8(0)
	programLoaded  = [2]bool{}
	programOffset  = [2]uint8{}
)

// allocatePIO hands out state machines round-robin across both blocks
func allocatePIO() (uint8, uint8, bool) {
	for i := 0; i < 8; i++ {
		pioNum := nextPIONum
		smNum := nextSMNum

		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		if !pioAllocations[pioNum][smNum] {
			pioAllocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}
	return 0, 0, false
}

// pioPulseIO generates the step pulses of selected pins in PIO hardware, so
// the pulse width does not depend on interrupt latency. Set(pin, true) on a
// step pin queues one pulse and the falling edge is ignored. All other pins
// go through gpioIO.
type pioPulseIO struct {
	gpio  gpioIO
	steps map[core.Pin]rp2pio.StateMachine
	want  map[core.Pin]bool
}

func newPIOPulseIO(stepPins []core.Pin) *pioPulseIO {
	p := &pioPulseIO{
		steps: make(map[core.Pin]rp2pio.StateMachine),
		want:  make(map[core.Pin]bool),
	}
	for _, pin := range stepPins {
		p.want[pin] = true
	}
	return p
}

func (p *pioPulseIO) ConfigureOutput(pin core.Pin) error {
	if !p.want[pin] {
		return p.gpio.ConfigureOutput(pin)
	}
	if pin >= numGPIO {
		return errPinRange
	}
	if _, ok := p.steps[pin]; ok {
		return errPinInUse
	}

	pioNum, smNum, ok := allocatePIO()
	if !ok {
		// Out of state machines: software pulses still work
		delete(p.want, pin)
		return p.gpio.ConfigureOutput(pin)
	}
	block := rp2pio.PIO0
	if pioNum == 1 {
		block = rp2pio.PIO1
	}
	sm := block.StateMachine(smNum)
	sm.TryClaim()

	program := pulseProgram()
	if !programLoaded[pioNum] {
		offset, err := block.AddProgram(program, pulseOrigin)
		if err != nil {
			return err
		}
		programOffset[pioNum] = offset
		programLoaded[pioNum] = true
	}
	offset := programOffset[pioNum]

	mpin := machine.Pin(pin)
	mpin.Configure(machine.PinConfig{Mode: block.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(mpin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	// 125MHz / 125 = 1MHz, one cycle per microsecond
	cfg.SetClkDivIntFrac(125, 0)

	sm.Init(offset, cfg)
	sm.SetPindirsConsecutive(mpin, 1, true)
	sm.SetPinsConsecutive(mpin, 1, false)
	sm.SetEnabled(true)

	p.steps[pin] = sm
	return nil
}

func (p *pioPulseIO) Set(pin core.Pin, high bool) {
	sm, ok := p.steps[pin]
	if !ok {
		p.gpio.Set(pin, high)
		return
	}
	if !high {
		return
	}
	// A full FIFO means four pulses are already queued; dropping one would
	// lose position, so wait.
	for sm.IsTxFIFOFull() {
	}
	sm.TxPut(1)
}

func (p *pioPulseIO) DelayMicroseconds(us uint32) {
	busyWaitUS(us)
}
