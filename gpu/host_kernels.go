package gpu

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/libra"
	m "github.com/cwbudde/libra/internal/math"
)

// Kernel names provided by kernel.cl and emulated by the host backend.
const (
	KernelPermute = "fft_gpu"
	KernelVanilla = "fft_gpu_vanilla"
)

// OddWidthMacro selects the odd-width body of KernelPermute. A program must
// define it exactly when log2 of the sample count is odd.
const OddWidthMacro = "LIBRA_ODD_WIDTH"

// OptionOddWidth is the build option that defines OddWidthMacro.
const OptionOddWidth = "-D" + OddWidthMacro

type argKind uint8

const (
	argBuffer argKind = iota
	argInt
)

// hostKernelSpec describes a host kernel: its argument signature and how to
// turn a launch into a runnable closure.
type hostKernelSpec struct {
	args    []argKind
	prepare func(l hostLaunch) (hostRun, error)
}

// hostLaunch is one enqueued launch: the bound arguments, the NDRange and the
// macros the program was built with.
type hostLaunch struct {
	args    []any
	global  int
	local   int
	defines map[string]string
}

type hostRun func(ctx context.Context, units int) error

var hostKernels = map[string]hostKernelSpec{
	// fft_gpu(buf, hlen, hw): one work item per low lane value.
	KernelPermute: {
		args:    []argKind{argBuffer, argInt, argInt},
		prepare: preparePermute,
	},
	// fft_gpu_vanilla(buf, n, block): full-width reversal per index, then
	// every butterfly stage in tasks of block groups. Stages are separated by
	// work-group barriers, so the whole range must be one work group.
	KernelVanilla: {
		args:    []argKind{argBuffer, argInt, argInt},
		prepare: prepareVanilla,
	},
}

func preparePermute(l hostLaunch) (hostRun, error) {
	buf := l.args[0].(*hostBuffer)
	hlen := int(l.args[1].(int32))
	hw := int(l.args[2].(int32))

	n := buf.len / 2
	if buf.len%2 != 0 || !m.IsPowerOf2(n) {
		return nil, fmt.Errorf("buffer of %d floats is not a power-of-two sample array", buf.len)
	}
	if hw < 0 || hlen != 1<<hw {
		return nil, fmt.Errorf("hlen %d does not match half width %d", hlen, hw)
	}
	if n != hlen*hlen && n != 2*hlen*hlen {
		return nil, fmt.Errorf("half width %d does not cover %d samples", hw, n)
	}

	_, odd := l.defines[OddWidthMacro]
	if odd != (n == 2*hlen*hlen) {
		return nil, fmt.Errorf("program built with %s=%t for %d samples", OddWidthMacro, odd, n)
	}

	swap := interleavedSwap(buf)

	return func(ctx context.Context, units int) error {
		return forEachItem(ctx, units, l.global, func(lo int) {
			libra.PermuteLane(n, lo, swap)
		})
	}, nil
}

func prepareVanilla(l hostLaunch) (hostRun, error) {
	buf := l.args[0].(*hostBuffer)
	n := int(l.args[1].(int32))
	block := int(l.args[2].(int32))

	if l.local != l.global {
		return nil, callError("EnqueueNDRangeKernel", StatusInvalidWorkGroupSize,
			fmt.Errorf("%s: local size %d must equal global size %d", KernelVanilla, l.local, l.global))
	}

	if !m.IsPowerOf2(n) || 2*n != buf.len {
		return nil, fmt.Errorf("length %d does not match buffer of %d floats", n, buf.len)
	}
	if block <= 0 {
		return nil, fmt.Errorf("block size %d", block)
	}

	switch buf.precision {
	case PrecisionFloat32:
		return func(ctx context.Context, units int) error {
			return runVanilla[complex64](ctx, units, buf.data32, min(l.global, n), block)
		}, nil
	case PrecisionFloat64:
		return func(ctx context.Context, units int) error {
			return runVanilla[complex128](ctx, units, buf.data64, min(l.global, n), block)
		}, nil
	default:
		return nil, ErrClosed
	}
}

func runVanilla[T libra.Complex, F libra.Float](ctx context.Context, units int, data []F, items, block int) error {
	n := len(data) / 2
	s := make([]T, n)
	if err := libra.Deinterleave(s, data); err != nil {
		return err
	}

	w := m.Log2(n)
	err := forEachItem(ctx, units, items, func(i int) {
		if r := m.ReverseBits(i, w); i < r {
			s[i], s[r] = s[r], s[i]
		}
	})
	if err != nil {
		return err
	}

	for size := 2; size <= n; size <<= 1 {
		groups := n / size
		tasks := (groups + block - 1) / block

		err := forEachItem(ctx, units, tasks, func(t int) {
			libra.Butterflies(s, size, t*block, min((t+1)*block, groups))
		})
		if err != nil {
			return err
		}
	}

	return libra.Interleave(data, s)
}

// forEachItem runs item for every id in [0, count) on at most units
// goroutines and returns once all of them have finished.
func forEachItem(ctx context.Context, units, count int, item func(id int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(units)

	for id := range count {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item(id)
			return nil
		})
	}

	return g.Wait()
}

// interleavedSwap swaps samples i and j of an interleaved buffer.
func interleavedSwap(buf *hostBuffer) func(i, j int) {
	switch buf.precision {
	case PrecisionFloat64:
		d := buf.data64
		return func(i, j int) {
			d[2*i], d[2*j] = d[2*j], d[2*i]
			d[2*i+1], d[2*j+1] = d[2*j+1], d[2*i+1]
		}
	default:
		d := buf.data32
		return func(i, j int) {
			d[2*i], d[2*j] = d[2*j], d[2*i]
			d[2*i+1], d[2*j+1] = d[2*j+1], d[2*i+1]
		}
	}
}
