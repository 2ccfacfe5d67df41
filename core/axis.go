package core

// Single-axis motion engine.
// Each axis runs one move at a time, driven from the tick callback of a
// pooled pulse timer. The control path (start, override, stop) runs
// concurrently and serializes against the tick through the axis critical
// section.

import (
	"errors"
	"sync/atomic"
)

// Mode selects which phase machine drives the axis.
type Mode uint8

const (
	ModeTarget   Mode = iota // fixed displacement
	ModeRotate               // run toward a signed speed indefinitely
	ModeStopping             // graceful decay to zero, applies to either machine
)

func (m Mode) String() string {
	switch m {
	case ModeTarget:
		return "target"
	case ModeRotate:
		return "rotate"
	case ModeStopping:
		return "stopping"
	}
	return "unknown"
}

// tickKind records which phase machine is attached to the timer. It stays
// fixed for the lifetime of a move, even after the mode becomes Stopping.
type tickKind uint8

const (
	tickNone tickKind = iota
	tickTarget
	tickRotate
)

var axisCount uint8

// Axis is one stepper motor and its motion state
type Axis struct {
	name    string
	id      uint8
	stepPin Pin
	dirPin  Pin

	io   DigitalIO
	pool TimerPool
	cs   critical

	// Read from any context
	moving   atomic.Bool
	follower atomic.Bool // pulsed by a leader's chain
	pos      atomic.Int32
	target   atomic.Int32

	// Profile state, owned by the tick while moving
	mode     Mode
	tick     tickKind
	dir      int32 // latched direction (+1/-1)
	vDir     int32 // rotate: sign of the pending velocity change
	s        int64
	sTgt     int64
	accEnd   int64
	decStart int64
	v        int32
	vSqr     int64
	vTgt     int32
	vTgtSqr  int64
	twoA     int64

	// Bresenham synchronization
	a         int64   // total steps of this axis in the coordinated move
	b         int64   // error accumulator (followers only)
	followers []*Axis // chain walked on every leader pulse

	timer PulseTimer
}

// NewAxis creates an axis on the given step and direction pins.
// Both pins are configured as outputs through the registered DigitalIO, and
// the registered TimerPool is captured for later moves.
func NewAxis(name string, stepPin, dirPin Pin) (*Axis, error) {
	if stepPin == dirPin {
		return nil, errors.New("step and direction pins must differ")
	}
	io := MustDigitalIO()
	if err := io.ConfigureOutput(stepPin); err != nil {
		return nil, err
	}
	if err := io.ConfigureOutput(dirPin); err != nil {
		return nil, err
	}
	io.Set(stepPin, false)
	io.Set(dirPin, false)

	ax := &Axis{
		name:    name,
		id:      axisCount,
		stepPin: stepPin,
		dirPin:  dirPin,
		io:      io,
		pool:    MustTimerPool(),
		dir:     1,
	}
	axisCount++
	return ax, nil
}

// Name returns the display name given at construction
func (ax *Axis) Name() string { return ax.name }

// ID returns the axis number used in event records
func (ax *Axis) ID() uint8 { return ax.id }

// StepPin returns the step output channel
func (ax *Axis) StepPin() Pin { return ax.stepPin }

// DirPin returns the direction output channel
func (ax *Axis) DirPin() Pin { return ax.dirPin }

// IsMoving reports whether a move is in flight
func (ax *Axis) IsMoving() bool { return ax.moving.Load() }

// Position returns the absolute step count
func (ax *Axis) Position() int32 { return ax.pos.Load() }

// Target returns the last commanded absolute position. After a graceful
// stop it is the position actually reached.
func (ax *Axis) Target() int32 { return ax.target.Load() }

// SetPosition redefines the current position. Ignored while moving.
func (ax *Axis) SetPosition(p int32) bool {
	ax.cs.enter()
	defer ax.cs.exit()
	if ax.moving.Load() || ax.follower.Load() {
		return false
	}
	ax.pos.Store(p)
	ax.target.Store(p)
	return true
}

// Mode returns the current motion mode
func (ax *Axis) Mode() Mode {
	ax.cs.enter()
	defer ax.cs.exit()
	return ax.mode
}

// Velocity returns the signed step rate of the last tick
func (ax *Axis) Velocity() int32 {
	ax.cs.enter()
	defer ax.cs.exit()
	return ax.v
}

// Phase is the position of a target move within its profile
type Phase uint8

const (
	PhaseAccelerate Phase = iota
	PhaseCruise
	PhaseDecelerate
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAccelerate:
		return "accelerate"
	case PhaseCruise:
		return "cruise"
	case PhaseDecelerate:
		return "decelerate"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// Profile is a consistent snapshot of an axis' motion state
type Profile struct {
	Mode     Mode
	Moving   bool
	S        int64
	STgt     int64
	AccEnd   int64
	DecStart int64
	V        int32
	VSqr     int64
	VTgt     int32
	VTgtSqr  int64
	TwoA     int64
}

// Phase classifies the snapshot the same way the target tick does
func (p Profile) Phase() Phase {
	switch {
	case p.S < p.AccEnd:
		return PhaseAccelerate
	case p.S < p.DecStart:
		return PhaseCruise
	case p.S < p.STgt:
		return PhaseDecelerate
	}
	return PhaseDone
}

// Profile returns a snapshot taken inside the critical section
func (ax *Axis) Profile() Profile {
	ax.cs.enter()
	defer ax.cs.exit()
	return Profile{
		Mode:     ax.mode,
		Moving:   ax.moving.Load(),
		S:        ax.s,
		STgt:     ax.sTgt,
		AccEnd:   ax.accEnd,
		DecStart: ax.decStart,
		V:        ax.v,
		VSqr:     ax.vSqr,
		VTgt:     ax.vTgt,
		VTgtSqr:  ax.vTgtSqr,
		TwoA:     ax.twoA,
	}
}

// latchDir drives the direction line and waits for the driver to settle.
func (ax *Axis) latchDir(dir int32) {
	ax.dir = dir
	ax.io.Set(ax.dirPin, dir > 0)
	ax.io.DelayMicroseconds(DirSettleUS)
}
