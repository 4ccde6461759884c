package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/libra/gpu"
	"github.com/cwbudde/libra/verify"
)

var repoKernel = filepath.Join("..", "..", KernelFile)

func testConfig(v Variant, n int) Config {
	cfg := DefaultConfig(v)
	cfg.N = n
	cfg.KernelPath = repoKernel
	return cfg
}

func TestRunPermuteVariant(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 4, 8, 64, 1024, 2048} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()

			log, hook := test.NewNullLogger()
			rep, err := Run(context.Background(), gpu.NewHostBackend(), VariantPermute, testConfig(VariantPermute, n), log)
			require.NoError(t, err)
			assert.True(t, rep.Passed(), "errors=%d", rep.Errors)
			assert.Equal(t, n, rep.N)
			assert.NotEmpty(t, rep.Device)
			assert.Equal(t, "PASSED!", hook.LastEntry().Message)
		})
	}
}

func TestRunVanillaVariant(t *testing.T) {
	t.Parallel()

	for _, input := range []Input{InputRamp, InputRandom} {
		for _, n := range []int{1, 2, 8, 64, 256} {
			cfg := testConfig(VariantVanilla, n)
			cfg.Input = input
			cfg.BlockSize = 3

			rep, err := Run(context.Background(), gpu.NewHostBackend(), VariantVanilla, cfg, nil)
			require.NoError(t, err)
			assert.Zero(t, rep.Errors, "input=%d n=%d", input, n)
		}
	}
}

func TestRunMissingKernelSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig(VariantPermute, 16)
	cfg.KernelPath = filepath.Join(t.TempDir(), "missing.cl")

	_, err := Run(context.Background(), gpu.NewHostBackend(), VariantPermute, cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKernelSource))
}

func TestRunUnknownKernel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, KernelFile)
	require.NoError(t, writeFile(path, "__kernel void other(__global float *s) {}"))

	cfg := testConfig(VariantPermute, 16)
	cfg.KernelPath = path

	_, err := Run(context.Background(), gpu.NewHostBackend(), VariantPermute, cfg, nil)
	var ce *gpu.CallError
	require.True(t, errors.As(err, &ce), "err=%v", err)
	assert.Equal(t, gpu.StatusInvalidKernelName, ce.Status)
}

func TestRunInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(VariantPermute, 12)
	_, err := Run(context.Background(), gpu.NewHostBackend(), VariantPermute, cfg, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Run(context.Background(), nil, VariantPermute, testConfig(VariantPermute, 8), nil)
	assert.True(t, errors.Is(err, gpu.ErrNoBackend))
}

func TestRunCountsMismatches(t *testing.T) {
	t.Parallel()

	const n = 1024

	log, hook := test.NewNullLogger()
	rep, err := Run(context.Background(), corruptingBackend{gpu.NewHostBackend()}, VariantPermute, testConfig(VariantPermute, n), log)
	require.NoError(t, err)

	// Every imaginary part past sample 0 is corrupted.
	assert.Equal(t, n-1, rep.Errors)
	assert.False(t, rep.Passed())

	mismatches := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["index"] != nil {
			mismatches++
		}
	}
	assert.Equal(t, verify.DiagnosticLimit, mismatches)
	assert.Equal(t, fmt.Sprintf("FAILED! - %d errors", n-1), hook.LastEntry().Message)
}

func TestKernelArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, hlen, hw int
	}{
		{1, 1, 0},
		{2, 1, 0},
		{4, 2, 1},
		{8, 2, 1},
		{1024, 32, 5},
		{2048, 32, 5},
	}

	ctx, err := gpu.NewHostBackend().NewContext(0)
	require.NoError(t, err)

	for _, tt := range tests {
		buf, err := ctx.NewBuffer(2*tt.n, gpu.PrecisionFloat32)
		require.NoError(t, err)

		global, local, args := kernelArgs(VariantPermute, testConfig(VariantPermute, tt.n), buf)
		assert.Equal(t, tt.hlen, global, "n=%d", tt.n)
		assert.Equal(t, 1, local, "n=%d", tt.n)
		assert.Equal(t, []any{buf, int32(tt.hlen), int32(tt.hw)}, args, "n=%d", tt.n)
	}

	buf, err := ctx.NewBuffer(128, gpu.PrecisionFloat32)
	require.NoError(t, err)
	global, local, args := kernelArgs(VariantVanilla, testConfig(VariantVanilla, 64), buf)
	assert.Equal(t, 64, global)
	assert.Equal(t, 64, local, "one work group spans the array")
	assert.Equal(t, []any{buf, int32(64), int32(4)}, args)
}

func TestRunBuildOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v       Variant
		n       int
		options string
	}{
		{VariantPermute, 1, ""},
		{VariantPermute, 2, gpu.OptionOddWidth},
		{VariantPermute, 1024, ""},
		{VariantPermute, 2048, gpu.OptionOddWidth},
		{VariantVanilla, 32, ""},
		{VariantVanilla, 64, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/n=%d", tt.v, tt.n), func(t *testing.T) {
			t.Parallel()

			b := &optionsBackend{Backend: gpu.NewHostBackend()}
			rep, err := Run(context.Background(), b, tt.v, testConfig(tt.v, tt.n), nil)
			require.NoError(t, err)
			assert.True(t, rep.Passed())
			assert.Equal(t, []string{tt.options}, b.options)
		})
	}
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, gpu.NewHostBackend(), VariantPermute, testConfig(VariantPermute, 64), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var ce *gpu.CallError
	assert.False(t, errors.As(err, &ce), "err=%v", err)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	p := DefaultConfig(VariantPermute)
	assert.Equal(t, 1024, p.N)
	assert.Equal(t, uint32(verify.DefaultULP), p.ULP)
	assert.Equal(t, KernelFile, p.KernelPath)
	require.NoError(t, p.Validate())

	v := DefaultConfig(VariantVanilla)
	assert.Equal(t, 64, v.N)
	assert.Equal(t, uint32(verify.VanillaULP), v.ULP)
	require.NoError(t, v.Validate())

	bad := p
	bad.BlockSize = 0
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))
	bad = p
	bad.KernelPath = ""
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))
	bad = p
	bad.N = 0
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))
	bad = p
	bad.N = MaxSamples << 1
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))

	large := p
	large.N = MaxSamples
	assert.NoError(t, large.Validate())
}

func TestMainUsage(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, ExitPassed, Main([]string{"-h"}, VariantPermute, &stdout, &stderr))
	assert.Equal(t, usage+"\n", stdout.String())

	stdout.Reset()
	assert.Equal(t, ExitFatal, Main([]string{"-x"}, VariantPermute, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Usage:")
	assert.Contains(t, stderr.String(), "-x")
}

func TestMainRuns(t *testing.T) {
	t.Chdir(filepath.Join("..", ".."))
	gpu.RegisterHostBackend()
	t.Cleanup(func() { gpu.RegisterBackend(nil) })

	var stdout, stderr bytes.Buffer
	assert.Equal(t, ExitPassed, Main([]string{"-n", "32"}, VariantPermute, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Workload size=32")
	assert.Contains(t, stdout.String(), "PASSED!")

	stdout.Reset()
	assert.Equal(t, ExitPassed, Main(nil, VariantVanilla, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Workload size=64")

	stdout.Reset()
	assert.Equal(t, ExitFatal, Main([]string{"-n", "12"}, VariantPermute, &stdout, &stderr))
	assert.True(t, strings.Contains(stdout.String(), "run aborted"))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

// optionsBackend records the build options of every program it creates.
type optionsBackend struct {
	gpu.Backend
	options []string
}

func (b *optionsBackend) NewContext(deviceIndex int) (gpu.Context, error) {
	ctx, err := b.Backend.NewContext(deviceIndex)
	if err != nil {
		return nil, err
	}
	return optionsContext{Context: ctx, b: b}, nil
}

type optionsContext struct {
	gpu.Context
	b *optionsBackend
}

func (c optionsContext) NewProgram(source []byte, options string) (gpu.Program, error) {
	c.b.options = append(c.b.options, options)
	return c.Context.NewProgram(source, options)
}

// corruptingBackend perturbs the imaginary part of every sample but the
// first when results are downloaded.
type corruptingBackend struct {
	gpu.Backend
}

func (b corruptingBackend) NewContext(deviceIndex int) (gpu.Context, error) {
	ctx, err := b.Backend.NewContext(deviceIndex)
	if err != nil {
		return nil, err
	}
	return corruptingContext{ctx}, nil
}

type corruptingContext struct {
	gpu.Context
}

func (c corruptingContext) NewBuffer(n int, p gpu.PrecisionKind) (gpu.Buffer, error) {
	buf, err := c.Context.NewBuffer(n, p)
	if err != nil {
		return nil, err
	}
	return corruptingBuffer{buf}, nil
}

type corruptingBuffer struct {
	gpu.Buffer
}

func (b corruptingBuffer) Unwrap() gpu.Buffer {
	return b.Buffer
}

func (b corruptingBuffer) Download(dst any) error {
	if err := b.Buffer.Download(dst); err != nil {
		return err
	}
	data := dst.([]float32)
	for i := 3; i < len(data); i += 2 {
		data[i] += 0.5
	}
	return nil
}
