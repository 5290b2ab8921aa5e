// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two sizing helpers used for FFT
padding and analysis-window validation. All operations are constant time
with no allocations, safe to call from real-time paths.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Exact powers
// of two are preserved; the size-1 before bits.Len is what keeps 8 from
// becoming 16. Non-positive sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	if ^uint(0)>>63 == 0 {
		return int(1 << bits.Len64(uint64(size-1)))
	}
	return int(1 << bits.Len32(uint32(size-1)))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of
// two has exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
