// Package bitint provides power-of-two helpers for FFT and buffer sizing.
// All operations are O(1), allocation-free and safe in the audio hot path.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Exact powers of 2
// are returned unchanged; that is what the size-1 below is for: without it
// bits.Len would land one position higher and double them. Non-positive
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}

	// int is 64-bit on every platform we ship to, but keep the 32-bit
	// path correct anyway.
	if ^uint(0)>>63 == 0 {
		return int(1 << (bits.Len64(uint64(size - 1))))
	}
	return int(1 << (bits.Len32(uint32(size - 1))))
}

// NextPowerOfTwo32 is NextPowerOfTwo for int32.
func NextPowerOfTwo32(size int32) int32 {
	if size <= 0 {
		return 1
	}
	return int32(1 << (bits.Len32(uint32(size - 1))))
}

// NextPowerOfTwo64 is NextPowerOfTwo for int64.
func NextPowerOfTwo64(size int64) int64 {
	if size <= 0 {
		return 1
	}
	return int64(1 << (bits.Len64(uint64(size - 1))))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of 2 have
// exactly one bit set, so n&(n-1) clears to zero only for them.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// IsPowerOfTwo32 is IsPowerOfTwo for int32.
func IsPowerOfTwo32(n int32) bool {
	return n > 0 && (n&(n-1)) == 0
}

// IsPowerOfTwo64 is IsPowerOfTwo for int64.
func IsPowerOfTwo64(n int64) bool {
	return n > 0 && (n&(n-1)) == 0
}
