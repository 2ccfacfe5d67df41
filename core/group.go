package core

import (
	"errors"
)

// Group owns a fixed set of axes and runs coordinated moves across them.
// For each move the axis with the longest travel becomes the leader; the
// others are chained behind it as followers and stepped from its ticks with
// Bresenham error accumulation, so every axis arrives at the same time.
type Group struct {
	axes   []*Axis
	leader int // index of the leader of the last coordinated move, or -1
}

var (
	ErrGroupBusy      = errors.New("group: axis in motion")
	ErrTargetCount    = errors.New("group: target count does not match axis count")
	ErrAxisOutOfRange = errors.New("group: axis index out of range")
	ErrBadLink        = errors.New("group: follower cannot be linked to leader")
)

// NewGroup creates a group over the given axes. Axis indices follow the
// argument order.
func NewGroup(axes ...*Axis) *Group {
	return &Group{axes: axes, leader: -1}
}

// Len returns the number of axes
func (g *Group) Len() int { return len(g.axes) }

// Axes returns the axes in index order
func (g *Group) Axes() []*Axis { return g.axes }

// Axis returns the axis at index i, or nil
func (g *Group) Axis(i int) *Axis {
	if i < 0 || i >= len(g.axes) {
		return nil
	}
	return g.axes[i]
}

// Leader returns the leader of the last coordinated move, or nil
func (g *Group) Leader() *Axis {
	return g.Axis(g.leader)
}

// IsMoving reports whether any axis is moving or still chained to a leader
func (g *Group) IsMoving() bool {
	for _, ax := range g.axes {
		if ax.IsMoving() || ax.follower.Load() {
			return true
		}
	}
	return false
}

// MoveTo starts a coordinated move to absolute targets, one per axis.
// vMax and accel apply to the leader; followers move proportionally.
func (g *Group) MoveTo(targets []int32, vMax, accel uint32) error {
	if len(targets) != len(g.axes) {
		return ErrTargetCount
	}
	g.Unlink()
	if g.IsMoving() {
		return ErrGroupBusy
	}

	leader := -1
	var longest int64
	for i, ax := range g.axes {
		ax.target.Store(targets[i])
		if d := abs64(int64(targets[i]) - int64(ax.Position())); d > longest {
			longest = d
			leader = i
		}
	}
	if leader < 0 {
		return nil
	}

	followers := make([]int, 0, len(g.axes)-1)
	for i := range g.axes {
		if i != leader {
			followers = append(followers, i)
		}
	}
	if err := g.Link(leader, followers...); err != nil {
		return err
	}
	g.axes[leader].StartMoveTo(targets[leader], 0, vMax, accel)
	return nil
}

// Link chains followers behind leader using the targets already stored on
// each axis. Followers with nothing to travel are left out. Each follower's
// direction is latched and its Bresenham state initialised from its
// displacement against the leader's. The chain runs once the leader is
// started with StartMoveTo on its stored target.
//
// Link fails while any axis is moving. A chain left from an earlier Link
// whose leader was never started is dropped first.
func (g *Group) Link(leader int, followers ...int) error {
	lead := g.Axis(leader)
	if lead == nil {
		return ErrAxisOutOfRange
	}
	seen := make([]bool, len(g.axes))
	seen[leader] = true
	for _, i := range followers {
		if g.Axis(i) == nil {
			return ErrAxisOutOfRange
		}
		if seen[i] {
			return ErrBadLink
		}
		seen[i] = true
	}
	for _, ax := range g.axes {
		if ax.IsMoving() {
			return ErrGroupBusy
		}
	}

	leaderSteps := abs64(int64(lead.Target()) - int64(lead.Position()))
	if leaderSteps == 0 {
		return ErrBadLink
	}
	for _, i := range followers {
		ax := g.axes[i]
		if abs64(int64(ax.Target())-int64(ax.Position())) > leaderSteps {
			return ErrBadLink
		}
	}

	g.Unlink()
	var chain []*Axis
	for _, i := range followers {
		ax := g.axes[i]
		delta := int64(ax.Target()) - int64(ax.Position())
		if delta == 0 {
			continue
		}
		ax.prepareFollower(ax.Target(), delta, leaderSteps)
		chain = append(chain, ax)
	}
	g.leader = leader
	lead.attachChain(chain)
	return nil
}

// Unlink drops the chain of every idle axis. Chains of running leaders are
// left alone; they are severed when the leader stops.
func (g *Group) Unlink() {
	for _, ax := range g.axes {
		ax.detachChain()
	}
}

// MoveBy starts a coordinated move by relative offsets
func (g *Group) MoveBy(deltas []int32, vMax, accel uint32) error {
	if len(deltas) != len(g.axes) {
		return ErrTargetCount
	}
	targets := make([]int32, len(deltas))
	for i, ax := range g.axes {
		targets[i] = ax.Position() + deltas[i]
	}
	return g.MoveTo(targets, vMax, accel)
}

// Rotate starts a rotation on a single axis
func (g *Group) Rotate(i int, v int32, accel uint32) error {
	ax := g.Axis(i)
	if ax == nil {
		return ErrAxisOutOfRange
	}
	if ax.follower.Load() {
		return ErrGroupBusy
	}
	ax.StartRotate(v, accel)
	return nil
}

// Override changes the speed of every moving axis
func (g *Group) Override(speed int32, accel uint32) {
	for _, ax := range g.axes {
		ax.OverrideSpeed(speed, accel)
	}
}

// Stop requests a graceful stop of every moving axis. Followers stop with
// their leader.
func (g *Group) Stop(accel uint32) {
	for _, ax := range g.axes {
		ax.StartStopping(0, accel)
	}
}

// EmergencyStop aborts every axis at once
func (g *Group) EmergencyStop() {
	for _, ax := range g.axes {
		ax.EmergencyStop()
	}
}

// prepareFollower sets up Bresenham state for one follower. The error term
// starts at A_f - ceil(A_l/2), which spreads the A_f pulses evenly over the
// A_l leader pulses.
func (ax *Axis) prepareFollower(target int32, delta, leaderSteps int64) {
	ax.cs.enter()
	defer ax.cs.exit()

	ax.target.Store(target)
	ax.a = abs64(delta)
	ax.b = ax.a - (leaderSteps+1)/2
	ax.v = 0
	ax.vSqr = 0
	ax.latchDir(signum(delta))
	ax.follower.Store(true)
}

// detachChain releases the followers of an idle axis
func (ax *Axis) detachChain() {
	ax.cs.enter()
	defer ax.cs.exit()
	if !ax.moving.Load() {
		ax.releaseChain(false)
	}
}

// attachChain installs the followers walked by this axis' ticks
func (ax *Axis) attachChain(chain []*Axis) {
	ax.cs.enter()
	defer ax.cs.exit()
	ax.followers = chain
}
