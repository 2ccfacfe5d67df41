//go:build rp2040

package main

import (
	"device/rp"
)

// The RP2040 timer counts microseconds from boot at 1MHz.

// nowUS returns the low 32 bits of the microsecond counter
func nowUS() uint32 {
	return rp.TIMER.TIMERAWL.Get()
}

// uptimeUS reads the full 64-bit counter
func uptimeUS() uint64 {
	for {
		high1 := rp.TIMER.TIMERAWH.Get()
		low := rp.TIMER.TIMERAWL.Get()
		high2 := rp.TIMER.TIMERAWH.Get()

		// Retry if the low word rolled over during the read
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// busyWaitUS spins for at least us microseconds
func busyWaitUS(us uint32) {
	start := nowUS()
	for nowUS()-start < us {
	}
}
