package core

// Phase machines. Both run in timer interrupt context, once per tick.
// Every v_sqr update for a tick is finished before the single square root
// that yields the next pulse frequency.

// OnTick implements TickHandler
func (ax *Axis) OnTick() {
	ax.cs.enterTick()
	defer ax.cs.exitTick()

	if !ax.moving.Load() {
		return
	}
	switch ax.tick {
	case tickTarget:
		ax.targetTick()
	case tickRotate:
		ax.rotateTick()
	}
}

// OnPulseReset implements TickHandler. It ends the pulse on the leader and
// on every follower of the chain.
func (ax *Axis) OnPulseReset() {
	ax.cs.enterTick()
	defer ax.cs.exitTick()

	ax.io.Set(ax.stepPin, false)
	for _, f := range ax.followers {
		f.io.Set(f.stepPin, false)
	}
}

func (ax *Axis) targetTick() {
	if ax.mode == ModeStopping {
		ax.vTgtSqr = 0
		if ax.s < ax.decStart {
			// Collapse the profile so the next tick starts decelerating.
			ax.accEnd = ax.s
			ax.decStart = ax.s
			ax.sTgt = ax.s + stopDistance(ax.vSqr, ax.twoA)
		}
	}

	switch {
	case ax.s < ax.accEnd:
		ax.vSqr += ax.twoA
		ax.v = velocity(ax.vSqr)
	case ax.s < ax.decStart:
		ax.v = velocity(min(ax.vSqr, ax.vTgtSqr))
	case ax.s < ax.sTgt:
		next := ax.vSqr - ax.twoA
		if next <= 0 {
			if ax.mode == ModeStopping {
				ax.finish()
				return
			}
			// Truncation left the ramp a step short; finish at the
			// last positive speed so the move still ends on s_tgt.
			next = ax.vSqr
		}
		ax.vSqr = next
		ax.v = velocity(ax.vSqr)
	default:
		ax.finish()
		return
	}
	ax.timer.UpdateFrequency(uint32(abs32(ax.v)))
	ax.doStep()
}

func (ax *Axis) rotateTick() {
	switch {
	case ax.mode == ModeStopping:
		if abs64(ax.vSqr) <= ax.twoA {
			ax.finish()
			return
		}
		ax.vSqr -= int64(signum(ax.vSqr)) * ax.twoA
	case abs64(ax.vSqr-ax.vTgtSqr) > ax.twoA:
		ax.vSqr += int64(ax.vDir) * ax.twoA
	default:
		// Within one step of the target. A zero target parks the axis
		// until a new speed arrives.
		ax.vSqr = ax.vTgtSqr
	}

	if ax.vSqr == 0 {
		ax.v = 0
		ax.timer.UpdateFrequency(StartSpeed)
		return
	}
	if d := signum(ax.vSqr); d != ax.dir {
		ax.latchDir(d)
	}
	ax.v = velocity(ax.vSqr)
	ax.timer.UpdateFrequency(uint32(abs32(ax.v)))
	ax.doStep()
}

// doStep raises the step line and propagates the pulse down the chain.
func (ax *Axis) doStep() {
	ax.io.Set(ax.stepPin, true)
	ax.s++
	ax.pos.Add(ax.dir)

	for _, f := range ax.followers {
		if f.b >= 0 {
			f.io.Set(f.stepPin, true)
			f.pos.Add(f.dir)
			f.b -= ax.a
		}
		f.b += f.a
	}
}
