// Package harness drives a kernel on a compute backend and validates its
// output against the reference transform.
package harness

import (
	"math"

	"github.com/pkg/errors"

	"github.com/cwbudde/libra"
	"github.com/cwbudde/libra/gpu"
	m "github.com/cwbudde/libra/internal/math"
	"github.com/cwbudde/libra/verify"
)

// KernelFile is the kernel source read at startup, relative to the working
// directory.
const KernelFile = "kernel.cl"

// MaxSamples is the largest N whose interleaved float count still fits the
// int32 kernel arguments.
const MaxSamples = 1 << 29

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("harness: invalid config")

// Variant selects which kernel a run dispatches and how it is validated.
type Variant uint8

const (
	// VariantPermute runs the half-width permutation kernel alone.
	VariantPermute Variant = iota
	// VariantVanilla runs the combined permutation and butterfly kernel.
	VariantVanilla
)

// String returns a human-readable name for the variant.
func (v Variant) String() string {
	switch v {
	case VariantPermute:
		return "permute"
	case VariantVanilla:
		return "vanilla"
	default:
		return "unknown"
	}
}

// Kernel returns the name of the kernel the variant dispatches.
func (v Variant) Kernel() string {
	if v == VariantVanilla {
		return gpu.KernelVanilla
	}
	return gpu.KernelPermute
}

// Mode returns the reference transform the variant is checked against.
func (v Variant) Mode() libra.Mode {
	if v == VariantVanilla {
		return libra.ModeFFT
	}
	return libra.ModePermute
}

// Input selects how the sample array is generated.
type Input uint8

const (
	// InputRamp sets sample k to (k, k).
	InputRamp Input = iota
	// InputRandom draws both parts uniformly from [0, 1).
	InputRandom
)

// Config controls one run.
type Config struct {
	// N is the number of complex samples; a power of two.
	N int
	// BlockSize is the number of butterfly groups per work item of the
	// combined kernel.
	BlockSize int
	// KernelPath is the kernel source file.
	KernelPath string
	// ULP is the float tolerance of the comparison.
	ULP uint32

	Input       Input
	Seed        int64
	DeviceIndex int
}

// DefaultConfig returns the defaults of the given variant.
func DefaultConfig(v Variant) Config {
	cfg := Config{
		N:          1024,
		BlockSize:  4,
		KernelPath: KernelFile,
		ULP:        verify.DefaultULP,
		Input:      InputRamp,
		Seed:       1,
	}

	if v == VariantVanilla {
		cfg.N = 64
		cfg.ULP = verify.VanillaULP
	}

	return cfg
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case !m.IsPowerOf2(c.N):
		return errors.Wrapf(ErrInvalidConfig, "size %d is not a power of two", c.N)
	case c.N > MaxSamples:
		return errors.Wrapf(ErrInvalidConfig, "size %d exceeds %d", c.N, MaxSamples)
	case c.BlockSize <= 0 || c.BlockSize > math.MaxInt32:
		return errors.Wrapf(ErrInvalidConfig, "block size %d", c.BlockSize)
	case c.KernelPath == "":
		return errors.Wrap(ErrInvalidConfig, "empty kernel path")
	case c.Input != InputRamp && c.Input != InputRandom:
		return errors.Wrapf(ErrInvalidConfig, "input %d", c.Input)
	case c.DeviceIndex < 0:
		return errors.Wrapf(ErrInvalidConfig, "device index %d", c.DeviceIndex)
	}
	return nil
}
