package core

import "math"

// Velocity is tracked as a signed square (v_sqr = sign(v)*v*v) so that a
// constant acceleration a changes it by a fixed 2a per step. Every distance
// below is in steps and truncates toward zero, which biases short.

// maxVSqr is the largest squared speed the int32 speed range can express.
const maxVSqr = int64(math.MaxInt32) * math.MaxInt32

func signum(x int64) int32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// signedSquare returns sign(v)*v*v.
func signedSquare(v int32) int64 {
	return int64(v) * int64(abs32(v))
}

// speedFrom converts a commanded unsigned speed, saturating at MaxInt32.
func speedFrom(v uint32) int32 {
	return int32(min(v, math.MaxInt32))
}

// gainOver returns twoA*steps, the v_sqr gained over steps at constant
// acceleration, saturating at maxVSqr.
func gainOver(twoA, steps int64) int64 {
	if steps <= 0 {
		return 0
	}
	if steps > maxVSqr/twoA {
		return maxVSqr
	}
	return twoA * steps
}

// triangleDistance is how far the axis can accelerate from vSqr and still
// stop within remaining steps. When twoA*remaining saturates the split is
// taken on distances instead, rounding the stop distance up.
func triangleDistance(vSqr, remaining, twoA int64) int64 {
	var d int64
	if g := gainOver(twoA, remaining); g < maxVSqr {
		d = (g - vSqr) / (2 * twoA)
	} else {
		d = (remaining - (vSqr+twoA-1)/twoA) / 2
	}
	return max(d, 0)
}

// stopDistance is the number of steps needed to decelerate from vSqr to zero.
func stopDistance(vSqr, twoA int64) int64 {
	return abs64(vSqr) / twoA
}

// reachDistance is the number of steps needed to go from one squared
// velocity to a higher one.
func reachDistance(from, to, twoA int64) int64 {
	return (to - from) / twoA
}

// landingDistance is the largest number of 2a decrements that keeps vSqr
// positive. Starting deceleration that many steps before the target lands
// the last pulse exactly on it.
func landingDistance(vSqr, twoA int64) int64 {
	if vSqr <= 0 {
		return 0
	}
	return (vSqr - 1) / twoA
}

// velocity recovers the signed speed from a signed square. This is the one
// square root evaluated per tick.
func velocity(vSqr int64) int32 {
	if vSqr == 0 {
		return 0
	}
	v := int32(math.MaxInt32)
	if a := abs64(vSqr); a < maxVSqr {
		v = int32(math.Sqrt(float64(a)))
	}
	if vSqr < 0 {
		return -v
	}
	return v
}
