package libra

// Interleave writes src into dst in the flat backend layout
// (re0, im0, re1, im1, ...). dst must hold exactly 2*len(src) values.
func Interleave[F Float, T Complex](dst []F, src []T) error {
	if dst == nil || src == nil {
		return ErrNilSlice
	}

	if len(dst) != 2*len(src) {
		return ErrLengthMismatch
	}

	for i, v := range src {
		re, im := complexParts(v)
		dst[2*i] = F(re)
		dst[2*i+1] = F(im)
	}

	return nil
}

// Deinterleave reads the flat backend layout src into dst.
// src must hold exactly 2*len(dst) values.
func Deinterleave[T Complex, F Float](dst []T, src []F) error {
	if dst == nil || src == nil {
		return ErrNilSlice
	}

	if len(src) != 2*len(dst) {
		return ErrLengthMismatch
	}

	for i := range dst {
		dst[i] = complexFromFloat64[T](float64(src[2*i]), float64(src[2*i+1]))
	}

	return nil
}

func complexParts[T Complex](v T) (re, im float64) {
	switch c := any(v).(type) {
	case complex64:
		return float64(real(c)), float64(imag(c))
	case complex128:
		return real(c), imag(c)
	default:
		panic("unsupported complex type")
	}
}
