package cmn

import "time"

// MinDur returns the smaller of two durations, mirroring cmn.MinDur used
// throughout the teacher's rebalancer for timeout calculations
// (reb/global.go).
func MinDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// ClampI32Positive clamps n into [0, math.MaxInt32], the saturation rule
// spec §3/§4.A require for item counts and cumulative stack multipliers.
func ClampI32Positive(n int64) int32 {
	const maxI32 = int32(1<<31 - 1)
	if n <= 0 {
		return 0
	}
	if n > int64(maxI32) {
		return maxI32
	}
	return int32(n)
}

// MaxI returns the larger of two ints.
func MaxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MinI returns the smaller of two ints.
func MinI(a, b int) int {
	if a < b {
		return a
	}
	return b
}
