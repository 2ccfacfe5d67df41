package core

// StartMoveTo starts a move to an absolute position.
//
// vEnd is accepted for interface stability and is currently ignored. vMax is
// the cruise speed in steps/s (zero selects StartSpeed) and accel is in
// steps/s²; accel must be positive.
//
// While a target move is already running in the same direction and has not
// begun decelerating, the call re-targets it in place: s and pos carry on and
// the timer keeps running. Any other call made while moving is ignored.
func (ax *Axis) StartMoveTo(target int32, vEnd int32, vMax uint32, accel uint32) {
	_ = vEnd
	if vMax == 0 {
		vMax = StartSpeed
	}

	ax.cs.enter()
	defer ax.cs.exit()

	if ax.follower.Load() {
		RecordEvent(EvtIgnored, ax.id, ax.s, ax.pos.Load(), int64(target))
		return
	}

	pos := ax.pos.Load()
	delta := int64(target) - int64(pos)

	if ax.moving.Load() {
		ax.retarget(target, delta, vMax, accel)
		return
	}

	ax.target.Store(target)
	if delta == 0 {
		return
	}

	ds := abs64(delta)
	ax.mode = ModeTarget
	ax.s = 0
	ax.sTgt = ds
	ax.twoA = 2 * int64(accel)
	ax.v = 0
	ax.vSqr = 0
	ax.vTgt = speedFrom(vMax)
	ax.vTgtSqr = int64(ax.vTgt) * int64(ax.vTgt)
	ax.a = ds

	accLength := reachDistance(0, ax.vTgtSqr, ax.twoA) + 1
	if accLength >= ds/2 {
		accLength = ds / 2
	}
	ax.accEnd = max(accLength-1, 0)
	ax.decStart = ds - accLength

	ax.latchDir(signum(delta))
	ax.vSqr = min(StartSpeed*StartSpeed, ax.vTgtSqr)
	ax.begin(tickTarget)
	RecordEvent(EvtMoveStart, ax.id, 0, pos, ds)
}

// StartMoveBy starts a move relative to the current position
func (ax *Axis) StartMoveBy(delta int32, vEnd int32, vMax uint32, accel uint32) {
	ax.StartMoveTo(ax.pos.Load()+delta, vEnd, vMax, accel)
}

// retarget moves the end point of a running target move. Must be called
// inside the critical section.
func (ax *Axis) retarget(target int32, delta int64, vMax uint32, accel uint32) {
	if ax.tick != tickTarget || ax.mode != ModeTarget || len(ax.followers) > 0 ||
		ax.s >= ax.decStart || signum(delta) != ax.dir {
		RecordEvent(EvtIgnored, ax.id, ax.s, ax.pos.Load(), int64(target))
		return
	}
	ax.target.Store(target)
	ax.sTgt = ax.s + abs64(delta)
	ax.reprofile(speedFrom(vMax), accel)
	RecordEvent(EvtRetarget, ax.id, ax.s, ax.pos.Load(), ax.sTgt)
}

// StartRotate runs the axis toward a signed speed until stopped.
// While a rotation is running only its target speed and acceleration are
// updated. A zero speed on an idle axis does nothing.
func (ax *Axis) StartRotate(vTgt int32, accel uint32) {
	ax.cs.enter()
	defer ax.cs.exit()

	if ax.moving.Load() {
		if ax.tick != tickRotate || ax.mode == ModeStopping {
			RecordEvent(EvtIgnored, ax.id, ax.s, ax.pos.Load(), int64(vTgt))
			return
		}
		ax.setRotateTarget(vTgt, accel)
		RecordEvent(EvtOverride, ax.id, ax.s, ax.pos.Load(), int64(vTgt))
		return
	}
	if vTgt == 0 || ax.follower.Load() {
		return
	}

	ax.mode = ModeRotate
	ax.s = 0
	ax.sTgt = 0
	ax.accEnd = 0
	ax.decStart = 0
	ax.v = 0
	ax.vSqr = int64(signum(int64(vTgt))) * min(StartSpeed*StartSpeed, abs64(signedSquare(vTgt)))
	ax.setRotateTarget(vTgt, accel)

	ax.latchDir(signum(int64(vTgt)))
	ax.begin(tickRotate)
	RecordEvent(EvtRotateStart, ax.id, 0, ax.pos.Load(), int64(vTgt))
}

func (ax *Axis) setRotateTarget(vTgt int32, accel uint32) {
	ax.vTgt = vTgt
	ax.vTgtSqr = signedSquare(vTgt)
	ax.vDir = signum(ax.vTgtSqr - ax.vSqr)
	if accel > 0 {
		ax.twoA = 2 * int64(accel)
	}
}

// StartStopping requests a graceful decay to zero speed. A non-zero accel
// replaces the current deceleration. vEnd is currently ignored.
func (ax *Axis) StartStopping(vEnd int32, accel uint32) {
	ax.cs.enter()
	defer ax.cs.exit()

	if !ax.moving.Load() {
		return
	}
	if accel > 0 {
		ax.twoA = 2 * int64(accel)
	}
	if ax.tick == tickRotate {
		ax.vTgt = vEnd
		ax.vTgtSqr = 0
		ax.vDir = -signum(ax.vSqr)
	}
	ax.mode = ModeStopping
	RecordEvent(EvtStopRequest, ax.id, ax.s, ax.pos.Load(), int64(accel))
}

// EmergencyStop aborts the move immediately. The axis is left wherever the
// last pulse put it, with no guarantee of having reached zero speed.
func (ax *Axis) EmergencyStop() {
	ax.cs.enter()
	defer ax.cs.exit()

	if ax.timer != nil {
		ax.timer.Stop()
		ax.pool.Release(ax.timer)
		ax.timer = nil
	}
	ax.releaseChain(false)
	ax.io.Set(ax.stepPin, false)
	ax.tick = tickNone
	ax.v = 0
	ax.vSqr = 0
	ax.moving.Store(false)
	RecordEvent(EvtEmergencyStop, ax.id, ax.s, ax.pos.Load(), 0)
}

// begin acquires a timer and attaches the axis to it. Must be called inside
// the critical section with the profile fully initialised.
func (ax *Axis) begin(kind tickKind) {
	ax.tick = kind
	ax.timer = ax.pool.Acquire()
	ax.timer.SetPulseParams(PulseWidthUS, ax.stepPin)
	ax.timer.AttachCallbacks(ax)
	ax.timer.UpdateFrequency(uint32(abs32(velocity(ax.vSqr))))
	ax.moving.Store(true)
	ax.timer.Start()
}

// finish stops and releases the timer and severs the follower chain.
func (ax *Axis) finish() {
	stopping := ax.mode == ModeStopping
	if stopping {
		ax.target.Store(ax.pos.Load())
	}
	ax.v = 0
	ax.vSqr = 0
	if ax.timer != nil {
		ax.timer.Stop()
		ax.pool.Release(ax.timer)
		ax.timer = nil
	}
	ax.releaseChain(stopping)
	ax.tick = tickNone
	ax.moving.Store(false)
	RecordEvent(EvtMoveDone, ax.id, ax.s, ax.pos.Load(), 0)
}

// releaseChain detaches every follower from this axis. When reached is set
// the followers' targets are moved to where they actually stopped.
func (ax *Axis) releaseChain(reached bool) {
	for i, f := range ax.followers {
		if reached {
			f.target.Store(f.pos.Load())
		}
		f.io.Set(f.stepPin, false)
		f.follower.Store(false)
		ax.followers[i] = nil
	}
	ax.followers = nil
}
