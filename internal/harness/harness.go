package harness

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/libra"
	"github.com/cwbudde/libra/gpu"
	m "github.com/cwbudde/libra/internal/math"
	"github.com/cwbudde/libra/verify"
)

// Report summarizes one run.
type Report struct {
	Variant Variant
	N       int
	Device  string
	Elapsed time.Duration
	Errors  int
}

// Passed reports whether the backend output matched the reference.
func (r Report) Passed() bool {
	return r.Errors == 0
}

// Run executes one benchmark-and-validate pass of variant v on backend b.
//
// Backend failures are returned as *gpu.CallError, a missing or empty kernel
// source as ErrKernelSource; in both cases no numeric result is trusted.
// Numeric mismatches are not errors: they are counted in Report.Errors.
// Every backend handle is released before Run returns.
func Run(ctx context.Context, b gpu.Backend, v Variant, cfg Config, log logrus.FieldLogger) (rep Report, err error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	rep = Report{Variant: v, N: cfg.N}
	if err := cfg.Validate(); err != nil {
		return rep, err
	}

	sess, err := gpu.OpenSession(b, cfg.DeviceIndex, log)
	if err != nil {
		return rep, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "release backend resources")
		}
	}()
	rep.Device = sess.Device().Name

	source, err := LoadKernelSource(cfg.KernelPath)
	if err != nil {
		return rep, err
	}

	data := generate(cfg)
	ref := make([]complex64, cfg.N)
	if err := libra.Deinterleave(ref, data); err != nil {
		return rep, err
	}

	buf, err := sess.Buffer(len(data), gpu.PrecisionFloat32)
	if err != nil {
		return rep, err
	}
	if err := sess.Build(source, buildOptions(v, cfg.N)); err != nil {
		return rep, err
	}
	kernel, err := sess.Kernel(v.Kernel())
	if err != nil {
		return rep, err
	}

	global, local, args := kernelArgs(v, cfg, buf)
	for i, arg := range args {
		if err := kernel.SetArg(i, arg); err != nil {
			return rep, err
		}
	}

	log.Info("Upload source buffers")
	if err := buf.Upload(data); err != nil {
		return rep, err
	}

	log.WithFields(logrus.Fields{"kernel": kernel.Name(), "global": global, "local": local}).Info("Execute the kernel")
	stream := sess.Stream()
	start := time.Now()
	if err := stream.Launch(ctx, kernel, global, local); err != nil {
		return rep, err
	}
	if err := stream.Synchronize(); err != nil {
		return rep, err
	}
	rep.Elapsed = time.Since(start)
	log.Infof("Elapsed time: %v", rep.Elapsed)

	log.Info("Download destination buffer")
	if err := buf.Download(data); err != nil {
		return rep, err
	}

	log.Info("Verify result")
	libra.Transform(ref, v.Mode())
	rep.Errors = compareInterleaved(ref, data, cfg.ULP, log)

	if rep.Passed() {
		log.Info("PASSED!")
	} else {
		log.Errorf("FAILED! - %d errors", rep.Errors)
	}

	return rep, nil
}

// buildOptions returns the compiler options for the variant's program.
// The permutation kernel has a separate body for odd widths.
func buildOptions(v Variant, n int) string {
	if v == VariantPermute && m.Log2(n)%2 == 1 {
		return gpu.OptionOddWidth
	}
	return ""
}

// kernelArgs returns the global and local work sizes and the argument list
// of the variant's kernel.
func kernelArgs(v Variant, cfg Config, buf gpu.Buffer) (global, local int, args []any) {
	if v == VariantVanilla {
		// Stages are separated by barriers: one work group covers the array.
		return cfg.N, cfg.N, []any{buf, int32(cfg.N), int32(cfg.BlockSize)}
	}

	// The width is taken from the float count 2N, hence the minus one.
	wordWidth := m.Log2(buf.Len()) - 1
	hw := wordWidth / 2
	hlen := 1 << hw
	return hlen, 1, []any{buf, int32(hlen), int32(hw)}
}

// generate returns the interleaved input of cfg.N samples.
func generate(cfg Config) []float32 {
	data := make([]float32, 2*cfg.N)

	switch cfg.Input {
	case InputRandom:
		kind := verify.NewFloat32(cfg.ULP, cfg.Seed)
		for i := range data {
			data[i] = kind.Generate(i)
		}
	default:
		for k := range cfg.N {
			data[2*k] = float32(k)
			data[2*k+1] = float32(k)
		}
	}

	return data
}

// compareInterleaved counts the samples of actual that differ from expected
// by more than ulp in either part.
func compareInterleaved(expected []complex64, actual []float32, ulp uint32, log logrus.FieldLogger) int {
	v := verify.NewValidator[float32](verify.Float32{ULP: ulp}, log)
	for i, e := range expected {
		v.CompareSample(i, real(e), imag(e), actual[2*i], actual[2*i+1])
	}
	return v.Errors()
}
