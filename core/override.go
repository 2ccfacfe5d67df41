package core

// OverrideSpeed changes the target speed of the running move, and its
// acceleration when accel is non-zero. The whole update runs inside the
// critical section so the tick never sees a half-rewritten profile.
//
// Rotations take the new signed speed as is. Target moves use the magnitude
// and are re-profiled in place, but only until deceleration has begun.
// Calling it on an idle or stopping axis does nothing.
func (ax *Axis) OverrideSpeed(newSpeed int32, accel uint32) {
	ax.cs.enter()
	defer ax.cs.exit()

	if !ax.moving.Load() {
		return
	}
	switch ax.mode {
	case ModeRotate:
		ax.setRotateTarget(newSpeed, accel)
	case ModeTarget:
		if ax.s >= ax.decStart {
			return
		}
		ax.reprofile(abs32(newSpeed), accel)
	default:
		return
	}
	RecordEvent(EvtOverride, ax.id, ax.s, ax.pos.Load(), int64(newSpeed))
}

// reprofile recomputes accEnd and decStart of a target move from the current
// step s, speed v_sqr and end point s_tgt. Must be called inside the critical
// section with s < decStart.
func (ax *Axis) reprofile(vTgt int32, accel uint32) {
	if accel > 0 {
		ax.twoA = 2 * int64(accel)
	}
	if vTgt < 1 {
		vTgt = 1
	}
	ax.vTgt = vTgt
	ax.vTgtSqr = int64(vTgt) * int64(vTgt)

	s := ax.s
	remaining := ax.sTgt - s
	available := remaining - stopDistance(ax.vSqr, ax.twoA)
	if available <= 0 {
		// No room left to change speed: decelerate now.
		ax.accEnd = s
		ax.decStart = s
		ax.vTgt = 0
		ax.vTgtSqr = 0
		return
	}

	// Highest speed from which the axis can still stop in time.
	ceiling := gainOver(ax.twoA, available)
	if ax.vTgtSqr > ceiling {
		ax.vTgtSqr = ceiling
		ax.vTgt = velocity(ceiling)
	}

	if ax.vTgtSqr < ax.vSqr {
		// Slowing down takes effect at once.
		ax.vSqr = ax.vTgtSqr
	}

	if ax.vTgtSqr > ax.vSqr {
		// Accelerate from here; split the remaining distance evenly when
		// the target cannot be reached and still leave room to stop.
		accLength := reachDistance(ax.vSqr, ax.vTgtSqr, ax.twoA)
		accLength = min(accLength, triangleDistance(ax.vSqr, remaining, ax.twoA))
		peak := ax.vSqr + accLength*ax.twoA

		ax.accEnd = s + accLength
		ax.decStart = min(max(ax.accEnd+1, ax.sTgt-landingDistance(peak, ax.twoA)), ax.sTgt)
		return
	}

	ax.accEnd = min(ax.accEnd, s)
	ax.decStart = max(ax.sTgt-landingDistance(ax.vSqr, ax.twoA), s)
}
