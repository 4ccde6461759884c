package libra

// Complex is a type constraint for the complex sample types supported by the
// reference transform.
type Complex interface {
	complex64 | complex128
}

// Float is a type constraint for the floating-point types used by the
// interleaved host↔backend buffer format.
type Float interface {
	float32 | float64
}
