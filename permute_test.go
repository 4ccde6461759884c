package libra

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/cwbudde/libra/internal/math"
)

func identity(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}

	return s
}

func TestPermuteSize8(t *testing.T) {
	t.Parallel()

	s := make([]complex128, 8)
	for i := range s {
		s[i] = complex(float64(i), float64(i))
	}

	Permute(s)

	want := []int{0, 4, 2, 6, 1, 5, 3, 7}
	for pos, orig := range want {
		assert.Equal(t, complex(float64(orig), float64(orig)), s[pos], "position %d", pos)
	}
}

func TestPermuteEvenSize4(t *testing.T) {
	t.Parallel()

	s := identity(4)
	permuteEven(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })

	assert.Equal(t, []int{0, 2, 1, 3}, s)
}

func TestPermuteMatchesDirectReversal(t *testing.T) {
	t.Parallel()

	for w := 0; w <= 14; w++ {
		n := 1 << w
		t.Run(fmt.Sprintf("W=%d", w), func(t *testing.T) {
			t.Parallel()

			s := identity(n)
			Permute(s)
			require.Equal(t, m.ComputeBitReversalIndices(n), s)
		})
	}
}

func TestPermuteIsInvolution(t *testing.T) {
	t.Parallel()

	for w := 0; w <= 12; w++ {
		n := 1 << w

		s := make([]complex64, n)
		for i := range s {
			s[i] = complex(float32(i)*0.5, -float32(i))
		}

		orig := append([]complex64(nil), s...)
		Permute(s)
		Permute(s)
		require.Equal(t, orig, s, "n=%d", n)
	}
}

func TestPermuteFuncSwapsEachPairOnce(t *testing.T) {
	t.Parallel()

	for w := 1; w <= 11; w++ {
		n := 1 << w
		direct := m.ComputeBitReversalIndices(n)
		seen := make(map[[2]int]bool)

		PermuteFunc(n, func(i, j int) {
			require.NotEqual(t, i, j, "fixed point swapped")
			require.Equal(t, direct[i], j, "pair (%d,%d) is not a reversal pair", i, j)

			key := [2]int{min(i, j), max(i, j)}
			require.False(t, seen[key], "pair %v swapped twice", key)
			seen[key] = true
		})

		want := 0
		for i, r := range direct {
			if i < r {
				want++
			}
		}
		assert.Len(t, seen, want, "n=%d", n)
	}
}

func TestPermuteLaneComposesToPermute(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 4, 8, 32, 64, 512, 2048} {
		s := identity(n)
		swap := func(i, j int) { s[i], s[j] = s[j], s[i] }

		_, hlen := HalfWidth(n)
		// Lanes are independent; run them in reverse to show order does not matter.
		for lo := hlen - 1; lo >= 0; lo-- {
			PermuteLane(n, lo, swap)
		}

		require.Equal(t, m.ComputeBitReversalIndices(n), s, "n=%d", n)
	}
}

func TestPermuteLaneOutOfRange(t *testing.T) {
	t.Parallel()

	called := false
	PermuteLane(16, 4, func(int, int) { called = true })
	PermuteLane(16, -1, func(int, int) { called = true })
	assert.False(t, called)
}

func TestHalfWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, hw, hlen int
	}{
		{1, 0, 1},
		{2, 0, 1},
		{4, 1, 2},
		{8, 1, 2},
		{16, 2, 4},
		{1024, 5, 32},
		{2048, 5, 32},
	}

	for _, tt := range tests {
		hw, hlen := HalfWidth(tt.n)
		assert.Equal(t, tt.hw, hw, "n=%d", tt.n)
		assert.Equal(t, tt.hlen, hlen, "n=%d", tt.n)
	}
}

func BenchmarkPermute(b *testing.B) {
	for _, n := range []int{1024, 2048, 65536} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			s := make([]complex64, n)
			b.ReportAllocs()

			for b.Loop() {
				Permute(s)
			}
		})
	}
}
