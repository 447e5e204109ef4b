// SPDX-License-Identifier: MIT
// Package bitint provides power-of-two helpers for buffer and transform
// sizing. All operations are O(1), allocation-free, and real-time safe.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Powers of two
// map to themselves; zero and negative sizes map to 1.
//
// The size-1 before bits.Len is what keeps exact powers of two from
// doubling: Len(8-1)=3 gives 1<<3 = 8, while Len(8)=4 would give 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of two
// have exactly one bit set, so n&(n-1) clears to zero only for them.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
