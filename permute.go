package libra

import m "github.com/cwbudde/libra/internal/math"

// Permute reorders s in place into bit-reversal order: the element at index i
// moves to the index formed by reversing the W-bit representation of i, where
// W = log2(len(s)). len(s) must be a power of two; shorter slices are left
// untouched.
func Permute[T any](s []T) {
	PermuteFunc(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

// PermuteFunc applies the bit-reversal permutation of an n-element index
// space through swap. swap is called once per unordered pair of distinct
// positions that are bit reversals of each other; fixed points are skipped.
func PermuteFunc(n int, swap func(i, j int)) {
	if n <= 1 {
		return
	}

	if m.Log2(n)%2 == 1 {
		permuteOdd(n, swap)
	} else {
		permuteEven(n, swap)
	}
}

// HalfWidth returns the lane width hw = floor(W/2) and lane length 2^hw for an
// index space of n = 2^W elements.
func HalfWidth(n int) (hw, hlen int) {
	hw = m.Log2(n) / 2
	return hw, 1 << hw
}

// PermuteLane performs the swaps owned by the low lane value lo for an index
// space of n elements. Running it for every lo in [0, hlen) is equivalent to
// PermuteFunc(n, swap). Different lanes touch disjoint pairs.
func PermuteLane(n, lo int, swap func(i, j int)) {
	hw, hlen := HalfWidth(n)
	if n <= 1 || lo < 0 || lo >= hlen {
		return
	}

	if m.Log2(n)%2 == 1 {
		laneOdd(lo, hw, swap)
	} else {
		laneEven(lo, hw, swap)
	}
}

// permuteEven handles W = 2*hw. An index (u << hw) | lo reverses to
// (rev(lo) << hw) | rev(u), so only the two hw-bit lanes need reversing.
func permuteEven(n int, swap func(i, j int)) {
	hw, hlen := HalfWidth(n)
	for lo := range hlen {
		laneEven(lo, hw, swap)
	}
}

func laneEven(lo, hw int, swap func(i, j int)) {
	rlo := m.ReverseBits(lo, hw)
	// u < rlo visits each pair from one side only and never a fixed point.
	for u := range rlo {
		ru := m.ReverseBits(u, hw)
		swap((u<<hw)|lo, (rlo<<hw)|ru)
	}
}

// permuteOdd handles W = 2*hw + 1. The middle bit maps onto itself under
// reversal, so every lane pair is swapped twice: once with the middle bit
// clear and once with it set.
func permuteOdd(n int, swap func(i, j int)) {
	hw, hlen := HalfWidth(n)
	for lo := range hlen {
		laneOdd(lo, hw, swap)
	}
}

func laneOdd(lo, hw int, swap func(i, j int)) {
	mp := 1 << hw
	rlo := m.ReverseBits(lo, hw)
	for u := range rlo {
		ru := m.ReverseBits(u, hw)
		swap((u<<(hw+1))|lo, (rlo<<(hw+1))|ru)
		swap((u<<(hw+1))|mp|lo, (rlo<<(hw+1))|mp|ru)
	}
}
