package math

// ComputeBitReversalIndices returns the bit-reversal permutation indices
// for a size-n radix-2 FFT. Every index is reversed over the full width,
// which makes the table a direct reference for the half-width permutation.
func ComputeBitReversalIndices(n int) []int {
	if n <= 0 {
		return nil
	}

	bitrev := make([]int, n)
	bits := Log2(n)

	for i := range n {
		bitrev[i] = ReverseBits(i, bits)
	}

	return bitrev
}

// Log2 returns the number of right shifts before n becomes zero, minus one:
// floor(log2(n)) for n >= 1, so Log2(1) = 0. Log2 returns 0 for n <= 0.
func Log2(n int) int {
	shifts := 0
	for n > 0 {
		n >>= 1
		shifts++
	}

	return max(shifts-1, 0)
}

// ReverseBits reverses the lower 'bits' bits of x.
// Bits of x above position 'bits' are ignored.
// Example: ReverseBits(6, 3) = ReverseBits(0b110, 3) = 0b011 = 3.
func ReverseBits(x, bits int) int {
	result := 0
	for range bits {
		result = (result << 1) | (x & 1)
		x >>= 1
	}

	return result
}

// IsPowerOf2 reports whether n is a positive power of two.
func IsPowerOf2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
