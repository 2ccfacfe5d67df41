package core

import (
	"testing"
)

func TestBresenhamErrorBound(t *testing.T) {
	r := newTestRig()
	lead := r.axis(t, "x", 2, 3)
	fol := r.axis(t, "y", 4, 5)
	g := NewGroup(lead, fol)

	for l := int32(1); l <= 40; l++ {
		for f := int32(0); f <= l; f++ {
			for _, sign := range []int32{1, -1} {
				lead.SetPosition(0)
				fol.SetPosition(0)

				if err := g.MoveTo([]int32{l, sign * f}, 5000, 5000); err != nil {
					t.Fatalf("MoveTo(%d, %d) failed: %v", l, sign*f, err)
				}
				for r.pool.step() {
					lp := int64(lead.Position())
					fp := int64(sign * fol.Position())
					// |fp - lp*F/L| <= 1
					if diff := fp*int64(l) - lp*int64(f); abs64(diff) > int64(l) {
						t.Fatalf("L=%d F=%d: follower at %d after %d leader steps", l, f, fp, lp)
					}
				}

				if lead.Position() != l {
					t.Fatalf("Leader ended at %d, expected %d", lead.Position(), l)
				}
				if fol.Position() != sign*f {
					t.Fatalf("L=%d: follower ended at %d, expected %d", l, fol.Position(), sign*f)
				}
				if g.IsMoving() {
					t.Fatalf("Group still busy after completion")
				}
			}
		}
	}
}

func TestGroupPicksLongestAxisAsLeader(t *testing.T) {
	r := newTestRig()
	x := r.axis(t, "x", 2, 3)
	y := r.axis(t, "y", 4, 5)
	z := r.axis(t, "z", 6, 7)
	g := NewGroup(x, y, z)

	if err := g.MoveTo([]int32{100, -400, 0}, 1000, 1000); err != nil {
		t.Fatalf("MoveTo failed: %v", err)
	}
	if g.Leader() != y {
		t.Errorf("Expected y to lead")
	}
	if !y.IsMoving() || x.IsMoving() {
		t.Errorf("Only the leader owns a timer")
	}
	if r.io.levels[5] {
		t.Errorf("Expected leader dir line low")
	}
	if !r.io.levels[3] {
		t.Errorf("Expected follower dir line high")
	}

	if err := g.MoveTo([]int32{0, 0, 0}, 1000, 1000); err != ErrGroupBusy {
		t.Errorf("Expected ErrGroupBusy, got %v", err)
	}
	if err := g.Rotate(0, 100, 100); err != ErrGroupBusy {
		t.Errorf("Expected ErrGroupBusy for a chained follower, got %v", err)
	}

	r.pool.runUntilIdle(t, 5000)
	if x.Position() != 100 || y.Position() != -400 || z.Position() != 0 {
		t.Errorf("Unexpected end positions %d/%d/%d", x.Position(), y.Position(), z.Position())
	}
	if r.io.rises[6] != 0 {
		t.Errorf("Axis without travel must not pulse")
	}
	if r.pool.acquired != 1 || r.pool.released != 1 {
		t.Errorf("Expected one timer for the whole group, got %d/%d", r.pool.acquired, r.pool.released)
	}
	for _, pin := range []Pin{2, 4, 6} {
		if r.io.levels[pin] {
			t.Errorf("Step pin %d left high", pin)
		}
	}
}

func TestGroupArgumentErrors(t *testing.T) {
	r := newTestRig()
	g := NewGroup(r.axis(t, "x", 2, 3))

	if err := g.MoveTo([]int32{1, 2}, 100, 100); err != ErrTargetCount {
		t.Errorf("Expected ErrTargetCount, got %v", err)
	}
	if err := g.Rotate(3, 100, 100); err != ErrAxisOutOfRange {
		t.Errorf("Expected ErrAxisOutOfRange, got %v", err)
	}
	if err := g.MoveTo([]int32{0}, 100, 100); err != nil {
		t.Errorf("Zero move should succeed, got %v", err)
	}
	if g.IsMoving() {
		t.Errorf("Zero move must not start anything")
	}
}

func TestGroupStopUpdatesFollowerTargets(t *testing.T) {
	r := newTestRig()
	x := r.axis(t, "x", 2, 3)
	y := r.axis(t, "y", 4, 5)
	g := NewGroup(x, y)

	if err := g.MoveBy([]int32{2000, 1000}, 800, 400); err != nil {
		t.Fatalf("MoveBy failed: %v", err)
	}
	r.tickUntil(t, func() bool { return x.Profile().S == 300 }, 5000)
	g.Stop(0)
	r.pool.runUntilIdle(t, 5000)

	if x.Target() != x.Position() || y.Target() != y.Position() {
		t.Errorf("Targets should follow reached positions: x %d/%d y %d/%d",
			x.Target(), x.Position(), y.Target(), y.Position())
	}
	if x.Position() >= 2000 || y.Position() >= 1000 {
		t.Errorf("Stop should end the move early")
	}
	if d := int(x.Position()) - 2*int(y.Position()); d < -2 || d > 2 {
		t.Errorf("Follower drifted from the 2:1 ratio: x=%d y=%d", x.Position(), y.Position())
	}
	if g.IsMoving() {
		t.Errorf("Group should be idle")
	}
}

func TestGroupEmergencyStop(t *testing.T) {
	r := newTestRig()
	x := r.axis(t, "x", 2, 3)
	y := r.axis(t, "y", 4, 5)
	z := r.axis(t, "z", 6, 7)
	g := NewGroup(x, y, z)

	if err := g.MoveTo([]int32{500, 250, 0}, 1000, 1000); err != nil {
		t.Fatalf("MoveTo failed: %v", err)
	}
	z.StartRotate(300, 300)
	stepN(r, 30)

	g.EmergencyStop()
	if g.IsMoving() {
		t.Errorf("Expected every axis idle")
	}
	if r.pool.acquired != r.pool.released {
		t.Errorf("Timer leak: %d/%d", r.pool.acquired, r.pool.released)
	}
	for _, ax := range g.Axes() {
		if ax.Profile().VSqr != 0 {
			t.Errorf("Axis %s kept velocity", ax.Name())
		}
	}
}

func TestGroupOverride(t *testing.T) {
	r := newTestRig()
	x := r.axis(t, "x", 2, 3)
	y := r.axis(t, "y", 4, 5)
	g := NewGroup(x, y)

	if err := g.MoveTo([]int32{3000, 1500}, 400, 1000); err != nil {
		t.Fatalf("MoveTo failed: %v", err)
	}
	r.tickUntil(t, func() bool { return x.Profile().S == 200 }, 5000)
	g.Override(800, 0)
	if x.Profile().VTgt != 800 {
		t.Errorf("Expected leader target 800, got %d", x.Profile().VTgt)
	}
	r.pool.runUntilIdle(t, 10000)
	if x.Position() != 3000 || y.Position() != 1500 {
		t.Errorf("Unexpected end positions %d/%d", x.Position(), y.Position())
	}
}

func TestGroupLink(t *testing.T) {
	r := newTestRig()
	x := r.axis(t, "x", 2, 3)
	y := r.axis(t, "y", 4, 5)
	z := r.axis(t, "z", 6, 7)
	g := NewGroup(x, y, z)

	x.target.Store(600)
	y.target.Store(-200)
	if err := g.Link(0, 1, 2); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if g.Leader() != x {
		t.Errorf("Expected x to lead")
	}
	if !y.follower.Load() || z.follower.Load() {
		t.Errorf("Only y has travel to follow")
	}
	if y.a != 200 || y.b != 200-300 {
		t.Errorf("Expected A=200 B=-100, got A=%d B=%d", y.a, y.b)
	}
	if r.io.levels[5] {
		t.Errorf("Expected follower dir line low")
	}

	x.StartMoveTo(600, 0, 1000, 1000)
	r.pool.runUntilIdle(t, 5000)
	if x.Position() != 600 || y.Position() != -200 || z.Position() != 0 {
		t.Errorf("Unexpected end positions %d/%d/%d", x.Position(), y.Position(), z.Position())
	}
	if y.follower.Load() || g.IsMoving() {
		t.Errorf("Chain should be severed at completion")
	}
	if r.pool.acquired != 1 || r.pool.released != 1 {
		t.Errorf("Expected one timer, got %d/%d", r.pool.acquired, r.pool.released)
	}
}

func TestGroupLinkErrors(t *testing.T) {
	r := newTestRig()
	x := r.axis(t, "x", 2, 3)
	y := r.axis(t, "y", 4, 5)
	z := r.axis(t, "z", 6, 7)
	g := NewGroup(x, y, z)

	tests := []struct {
		name      string
		leader    int
		followers []int
		want      error
	}{
		{"leader out of range", 3, nil, ErrAxisOutOfRange},
		{"follower out of range", 0, []int{-1}, ErrAxisOutOfRange},
		{"leader as follower", 0, []int{0}, ErrBadLink},
		{"duplicate follower", 0, []int{1, 1}, ErrBadLink},
		{"leader without travel", 0, []int{1}, ErrBadLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.Link(tt.leader, tt.followers...); err != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	x.target.Store(100)
	y.target.Store(101)
	if err := g.Link(0, 1); err != ErrBadLink {
		t.Errorf("Expected ErrBadLink for a longer follower, got %v", err)
	}

	z.StartRotate(300, 300)
	if err := g.Link(1, 0); err != ErrGroupBusy {
		t.Errorf("Expected ErrGroupBusy, got %v", err)
	}
	z.EmergencyStop()
}

func TestGroupMoveAfterUnstartedLink(t *testing.T) {
	r := newTestRig()
	x := r.axis(t, "x", 2, 3)
	y := r.axis(t, "y", 4, 5)
	g := NewGroup(x, y)

	x.target.Store(100)
	y.target.Store(50)
	if err := g.Link(0, 1); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if !g.IsMoving() {
		t.Errorf("A pending chain counts as busy")
	}

	if err := g.MoveTo([]int32{0, 300}, 1000, 1000); err != nil {
		t.Fatalf("MoveTo after an unstarted Link failed: %v", err)
	}
	if g.Leader() != y || len(x.followers) != 0 {
		t.Errorf("Stale chain should have been dropped")
	}
	r.pool.runUntilIdle(t, 5000)
	if x.Position() != 0 || y.Position() != 300 {
		t.Errorf("Unexpected end positions %d/%d", x.Position(), y.Position())
	}
}
