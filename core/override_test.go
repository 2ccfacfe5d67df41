package core

import (
	"math"
	"testing"
)

// startTrapezoid starts the 1000-step, 200 steps/s, 500 steps/s² move and
// runs it to step s.
func startTrapezoid(t *testing.T, r *testRig, ax *Axis, s int64) {
	t.Helper()
	ax.StartMoveTo(1000, 0, 200, 500)
	r.tickUntil(t, func() bool { return ax.Profile().S == s }, 2000)
}

func TestOverrideLowerWhileAccelerating(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)
	startTrapezoid(t, r, ax, 20)

	if p := ax.Profile(); p.Phase() != PhaseAccelerate || p.VSqr != 60000 {
		t.Fatalf("Expected accelerating at v_sqr 60000, got %s at %d", p.Phase(), p.VSqr)
	}

	ax.OverrideSpeed(100, 0)
	p := ax.Profile()
	checkProfile(t, p)
	if p.AccEnd != 20 || p.DecStart != 991 {
		t.Errorf("Expected accEnd=20 decStart=991, got %d/%d", p.AccEnd, p.DecStart)
	}
	if p.VSqr > p.VTgtSqr || p.VTgtSqr != 10000 {
		t.Errorf("Expected v_sqr within the new ceiling 10000, got %d (tgt %d)", p.VSqr, p.VTgtSqr)
	}
	if p.STgt != 1000 || p.TwoA != 1000 {
		t.Errorf("Override must keep sTgt and acceleration")
	}

	r.pool.step()
	if v := ax.Velocity(); v != 100 {
		t.Errorf("Expected cruise at 100, got %d", v)
	}

	r.pool.runUntilIdle(t, 2000)
	if ax.Position() != 1000 {
		t.Errorf("Expected position 1000, got %d", ax.Position())
	}
}

func TestOverrideHigherWhileCruising(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)
	startTrapezoid(t, r, ax, 100)

	ax.OverrideSpeed(400, 0)
	p := ax.Profile()
	checkProfile(t, p)
	if p.AccEnd != 180 || p.DecStart != 841 {
		t.Errorf("Expected accEnd=180 decStart=841, got %d/%d", p.AccEnd, p.DecStart)
	}

	r.tickUntil(t, func() bool { return ax.Profile().S == 500 }, 2000)
	if v := ax.Velocity(); v != 400 {
		t.Errorf("Expected cruise at 400, got %d", v)
	}

	r.pool.runUntilIdle(t, 2000)
	if ax.Position() != 1000 {
		t.Errorf("Expected position 1000, got %d", ax.Position())
	}
}

func TestOverrideClampedToStoppingCeiling(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)
	startTrapezoid(t, r, ax, 900)

	ax.OverrideSpeed(5000, 0)
	p := ax.Profile()
	checkProfile(t, p)
	if p.VTgtSqr != 20000 || p.VTgt != 141 {
		t.Errorf("Expected target clamped to v_sqr 20000 (141), got %d (%d)", p.VTgtSqr, p.VTgt)
	}
	if p.DecStart != 981 {
		t.Errorf("Expected decStart 981, got %d", p.DecStart)
	}

	r.pool.runUntilIdle(t, 2000)
	if ax.Position() != 1000 {
		t.Errorf("Expected position 1000, got %d", ax.Position())
	}
}

func TestOverrideForcesDeceleration(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)
	startTrapezoid(t, r, ax, 950)

	ax.OverrideSpeed(300, 0)
	p := ax.Profile()
	if p.AccEnd != 950 || p.DecStart != 950 || p.VTgt != 0 {
		t.Errorf("Expected immediate deceleration at 950, got accEnd=%d decStart=%d vTgt=%d",
			p.AccEnd, p.DecStart, p.VTgt)
	}

	r.pool.step()
	if ph := ax.Profile().Phase(); ph != PhaseDecelerate {
		t.Errorf("Expected decelerate, got %s", ph)
	}
	r.pool.runUntilIdle(t, 2000)
	if ax.Position() != 1000 {
		t.Errorf("Expected position 1000, got %d", ax.Position())
	}
}

func TestOverrideIgnoredWhileDecelerating(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)
	startTrapezoid(t, r, ax, 970)

	before := ax.Profile()
	ax.OverrideSpeed(1000, 2000)
	after := ax.Profile()
	if before != after {
		t.Errorf("Override changed a decelerating profile: %+v -> %+v", before, after)
	}
}

func TestOverrideNewAcceleration(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)
	startTrapezoid(t, r, ax, 100)

	ax.OverrideSpeed(200, 2000)
	p := ax.Profile()
	checkProfile(t, p)
	if p.TwoA != 4000 {
		t.Errorf("Expected twoA 4000, got %d", p.TwoA)
	}

	r.pool.runUntilIdle(t, 2000)
	if ax.Position() != 1000 {
		t.Errorf("Expected position 1000, got %d", ax.Position())
	}
}

func TestOverrideSequenceKeepsProfileWellFormed(t *testing.T) {
	speeds := []int32{50, 3000, 120, 900, 0, 700, 10000}

	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)
	ax.StartMoveTo(20000, 0, 800, 300)

	for i, v := range speeds {
		r.tickUntil(t, func() bool { return ax.Profile().S >= int64(1000*(i+1)) }, 100000)
		ax.OverrideSpeed(v, 0)
		p := ax.Profile()
		if p.AccEnd == p.DecStart && p.DecStart == p.S {
			continue
		}
		checkProfile(t, p)
	}

	r.pool.runUntilIdle(t, 100000)
	if ax.Position() != 20000 {
		t.Errorf("Expected position 20000, got %d", ax.Position())
	}
}

func TestOverrideCeilingSaturates(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)

	ax.StartMoveTo(math.MaxInt32, 0, math.MaxUint32, math.MaxUint32)
	if p := ax.Profile(); p.VTgt != math.MaxInt32 {
		t.Errorf("Expected commanded speed clamped to MaxInt32, got %d", p.VTgt)
	}

	ax.OverrideSpeed(math.MaxInt32, 0)
	p := ax.Profile()
	checkProfile(t, p)
	if p.VTgt != math.MaxInt32 || p.VTgtSqr != maxVSqr {
		t.Errorf("Expected target at the saturated ceiling, got %d (sqr %d)", p.VTgt, p.VTgtSqr)
	}
	if p.VSqr <= 0 {
		t.Errorf("Expected positive v_sqr, got %d", p.VSqr)
	}
	ax.EmergencyStop()
}

func TestRetargetClampsCommandedSpeed(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)
	startTrapezoid(t, r, ax, 20)

	ax.StartMoveTo(2000, 0, math.MaxUint32, 0)
	p := ax.Profile()
	checkProfile(t, p)
	if p.STgt != 2000 {
		t.Fatalf("Expected re-target to 2000, got %d", p.STgt)
	}
	if p.VTgt <= 200 {
		t.Errorf("Expected a raised target speed, got %d", p.VTgt)
	}

	r.pool.runUntilIdle(t, 5000)
	if ax.Position() != 2000 {
		t.Errorf("Expected position 2000, got %d", ax.Position())
	}
}

func TestGainOverSaturates(t *testing.T) {
	tests := []struct {
		twoA, steps, want int64
	}{
		{1000, 0, 0},
		{1000, -5, 0},
		{1000, 7, 7000},
		{2 * math.MaxUint32, math.MaxInt32, maxVSqr},
	}
	for _, tt := range tests {
		if got := gainOver(tt.twoA, tt.steps); got != tt.want {
			t.Errorf("gainOver(%d, %d): expected %d, got %d", tt.twoA, tt.steps, tt.want, got)
		}
	}
	if d := triangleDistance(0, 1000, 1000); d != 500 {
		t.Errorf("Expected triangle 500, got %d", d)
	}
	if d := triangleDistance(40000, math.MaxInt32, 2*math.MaxUint32); d != (math.MaxInt32-1)/2 {
		t.Errorf("Expected saturated triangle %d, got %d", (math.MaxInt32-1)/2, d)
	}
	if v := velocity(maxVSqr); v != math.MaxInt32 {
		t.Errorf("Expected MaxInt32 at maxVSqr, got %d", v)
	}
}
