package verify

import (
	"io"

	"github.com/sirupsen/logrus"
)

// DiagnosticLimit caps how many mismatches are reported per run.
const DiagnosticLimit = 100

// Validator accumulates mismatches between expected and actual values.
// Mismatches are always counted; only the first DiagnosticLimit of them are
// logged. A Validator is not safe for concurrent use.
type Validator[T any] struct {
	kind   Kind[T]
	log    logrus.FieldLogger
	limit  int
	errors int
}

// NewValidator returns a Validator for the given kind. A nil logger discards
// diagnostics.
func NewValidator[T any](kind Kind[T], log logrus.FieldLogger) *Validator[T] {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Validator[T]{
		kind:  kind,
		log:   log,
		limit: DiagnosticLimit,
	}
}

// Compare checks one value pair, counting and reporting a mismatch.
func (v *Validator[T]) Compare(index int, expected, actual T) bool {
	if v.check(index, expected, actual) {
		return true
	}

	v.errors++
	return false
}

// CompareSample checks the real then the imaginary part of one sample.
// A sample counts as at most one mismatch; the imaginary part is not
// examined once the real part has failed.
func (v *Validator[T]) CompareSample(index int, expectedRe, expectedIm, actualRe, actualIm T) bool {
	if v.check(index, expectedRe, actualRe) && v.check(index, expectedIm, actualIm) {
		return true
	}

	v.errors++
	return false
}

func (v *Validator[T]) check(index int, expected, actual T) bool {
	if v.kind.Equal(expected, actual) {
		return true
	}

	if v.errors < v.limit {
		v.log.WithFields(logrus.Fields{
			"index":    index,
			"kind":     v.kind.Label(),
			"expected": expected,
			"actual":   actual,
		}).Error("*** mismatch")
	}

	return false
}

// Errors returns the number of mismatches counted so far.
func (v *Validator[T]) Errors() int {
	return v.errors
}

// Passed reports whether no mismatch has been counted.
func (v *Validator[T]) Passed() bool {
	return v.errors == 0
}

// Reset clears the mismatch count.
func (v *Validator[T]) Reset() {
	v.errors = 0
}
