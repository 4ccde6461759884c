// Package verify certifies that two independently produced result arrays
// agree, using an exact rule for integers and a ULP distance for floats.
package verify

import (
	"math"
	"math/rand"
)

// Thresholds used by the validation passes.
const (
	// DefaultULP is the tolerance for the permutation kernel pass.
	DefaultULP = 6
	// VanillaULP is the tolerance for the combined permutation and butterfly pass.
	VanillaULP = 10
)

// Kind is the capability set of a numeric kind: how values are generated,
// compared and named in reports.
type Kind[T any] interface {
	Label() string
	Generate(i int) T
	Equal(expected, actual T) bool
}

// Int compares integers exactly.
type Int struct {
	Rand *rand.Rand
}

// NewInt returns an integer kind with a generator seeded by seed.
func NewInt(seed int64) Int {
	return Int{Rand: rand.New(rand.NewSource(seed))}
}

func (Int) Label() string { return "integer" }

// Generate returns a non-negative pseudo-random integer.
func (k Int) Generate(int) int {
	if k.Rand == nil {
		return rand.Int()
	}
	return k.Rand.Int()
}

func (Int) Equal(expected, actual int) bool {
	return expected == actual
}

// Float32 compares float32 values by the distance of their bit patterns.
type Float32 struct {
	ULP  uint32
	Rand *rand.Rand
}

// NewFloat32 returns a float32 kind with the given tolerance and seed.
func NewFloat32(ulp uint32, seed int64) Float32 {
	return Float32{ULP: ulp, Rand: rand.New(rand.NewSource(seed))}
}

func (Float32) Label() string { return "float" }

// Generate returns a pseudo-random value in [0, 1).
func (k Float32) Generate(int) float32 {
	if k.Rand == nil {
		return rand.Float32()
	}
	return k.Rand.Float32()
}

func (k Float32) Equal(expected, actual float32) bool {
	return ULPDistance32(expected, actual) <= k.ULP
}

// Float64 compares float64 values by the distance of their bit patterns.
type Float64 struct {
	ULP  uint64
	Rand *rand.Rand
}

// NewFloat64 returns a float64 kind with the given tolerance and seed.
func NewFloat64(ulp uint64, seed int64) Float64 {
	return Float64{ULP: ulp, Rand: rand.New(rand.NewSource(seed))}
}

func (Float64) Label() string { return "double" }

// Generate returns a pseudo-random value in [0, 1).
func (k Float64) Generate(int) float64 {
	if k.Rand == nil {
		return rand.Float64()
	}
	return k.Rand.Float64()
}

func (k Float64) Equal(expected, actual float64) bool {
	return ULPDistance64(expected, actual) <= k.ULP
}

// ULPDistance32 returns |bits(a) - bits(b)| with both bit patterns read as
// signed 32-bit integers.
func ULPDistance32(a, b float32) uint32 {
	ia := int64(int32(math.Float32bits(a)))
	ib := int64(int32(math.Float32bits(b)))
	if ia >= ib {
		return uint32(ia - ib)
	}
	return uint32(ib - ia)
}

// ULPDistance64 returns |bits(a) - bits(b)| with both bit patterns read as
// signed 64-bit integers. The difference is taken modulo 2^64, which is exact
// because the true distance is below 2^64.
func ULPDistance64(a, b float64) uint64 {
	ia := int64(math.Float64bits(a))
	ib := int64(math.Float64bits(b))
	if ia >= ib {
		return uint64(ia) - uint64(ib)
	}
	return uint64(ib) - uint64(ia)
}
