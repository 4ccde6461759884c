package libra

import "errors"

// Sentinel errors returned by buffer conversion.
var (
	// ErrNilSlice is returned when a nil slice is passed to a conversion.
	ErrNilSlice = errors.New("libra: nil slice")

	// ErrLengthMismatch is returned when an interleaved buffer does not hold
	// exactly two floats per sample.
	ErrLengthMismatch = errors.New("libra: slice length mismatch")
)
