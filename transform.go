package libra

import "math"

// Mode selects which stages the reference transform runs.
type Mode uint8

const (
	// ModePermute runs the bit-reversal permutation only.
	ModePermute Mode = iota
	// ModeFFT runs the permutation followed by the iterative butterfly stages.
	ModeFFT
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModePermute:
		return "permute"
	case ModeFFT:
		return "fft"
	default:
		return "unknown"
	}
}

// Transform computes the trusted reference result for s in place.
// Slices of length <= 1 are returned unchanged.
func Transform[T Complex](s []T, mode Mode) {
	n := len(s)
	if n <= 1 {
		return
	}

	Permute(s)

	if mode != ModeFFT {
		return
	}

	for size := 2; size <= n; size <<= 1 {
		Butterflies(s, size, 0, n/size)
	}
}

// Forward computes the radix-2 decimation-in-time forward transform of s in place.
func Forward[T Complex](s []T) {
	Transform(s, ModeFFT)
}

// Butterflies runs one butterfly stage of the given size over the groups
// [from, to), where group g covers s[g*size : (g+1)*size]. s must already be
// in bit-reversed order and all smaller stages must have completed.
//
// The twiddle for butterfly j is built by the recurrence w *= wlen with
// wlen = exp(-2πi/size), so the result only depends on the group, not on how
// a stage was split across callers.
func Butterflies[T Complex](s []T, size, from, to int) {
	half := size / 2
	angle := -2 * math.Pi / float64(size)
	wlen := complexFromFloat64[T](math.Cos(angle), math.Sin(angle))

	for g := from; g < to; g++ {
		i := g * size
		w := complexFromFloat64[T](1, 0)

		for j := range half {
			u := s[i+j]
			v := s[i+j+half] * w
			s[i+j] = u + v
			s[i+j+half] = u - v
			w *= wlen
		}
	}
}

// complexFromFloat64 creates a complex number of type T from float64 components.
func complexFromFloat64[T Complex](re, im float64) T {
	var zero T

	switch any(zero).(type) {
	case complex64:
		result, _ := any(complex(float32(re), float32(im))).(T)
		return result
	case complex128:
		result, _ := any(complex(re, im)).(T)
		return result
	default:
		panic("unsupported complex type")
	}
}
