package gpu

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/cwbudde/libra/internal/cpu"
)

// HostBackend is a CPU-backed backend for development and tests.
// It satisfies the backend interfaces and emulates the kernels in Go, running
// work items concurrently on up to ComputeUnits goroutines.
type HostBackend struct {
	device DeviceInfo
}

// NewHostBackend returns a host backend with a single device describing the
// host CPU.
func NewHostBackend() *HostBackend {
	host := cpu.DetectHost()
	return &HostBackend{
		device: DeviceInfo{
			Name:         "HostCPU/" + host.Brand,
			Vendor:       host.Vendor,
			Driver:       "host/" + runtime.GOARCH,
			MemoryMB:     host.MemoryMB,
			ComputeCap:   cpu.DetectFeatures().String(),
			ComputeUnits: min(host.Cores, runtime.NumCPU()),
		},
	}
}

func (b *HostBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "host",
		Version:     "0.1",
		Description: "CPU-backed kernel emulation",
	}
}

func (b *HostBackend) Available() bool {
	return true
}

func (b *HostBackend) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{b.device}, nil
}

func (b *HostBackend) NewContext(deviceIndex int) (Context, error) {
	if deviceIndex != 0 {
		return nil, callError("NewContext", StatusDeviceNotFound,
			fmt.Errorf("host backend: device index %d out of range", deviceIndex))
	}
	return &hostContext{device: b.device}, nil
}

// RegisterHostBackend registers the host backend as the active backend.
func RegisterHostBackend() {
	RegisterBackend(NewHostBackend())
}

type hostContext struct {
	device DeviceInfo
	closed bool
}

func (c *hostContext) Device() DeviceInfo {
	return c.device
}

func (c *hostContext) NewBuffer(elemCount int, precision PrecisionKind) (Buffer, error) {
	if c.closed {
		return nil, callError("NewBuffer", StatusInvalidContext, ErrClosed)
	}
	if elemCount <= 0 {
		return nil, callError("NewBuffer", StatusInvalidBufferSize,
			fmt.Errorf("host backend: %d elements", elemCount))
	}
	switch precision {
	case PrecisionFloat32:
		return &hostBuffer{
			precision: precision,
			len:       elemCount,
			data32:    make([]float32, elemCount),
		}, nil
	case PrecisionFloat64:
		return &hostBuffer{
			precision: precision,
			len:       elemCount,
			data64:    make([]float64, elemCount),
		}, nil
	default:
		return nil, callError("NewBuffer", StatusInvalidValue,
			fmt.Errorf("host backend: precision %s", precision))
	}
}

func (c *hostContext) NewStream() (Stream, error) {
	if c.closed {
		return nil, callError("NewStream", StatusInvalidContext, ErrClosed)
	}
	return &hostStream{units: max(c.device.ComputeUnits, 1)}, nil
}

var kernelDecl = regexp.MustCompile(`__kernel\s+void\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

func (c *hostContext) NewProgram(source []byte, options string) (Program, error) {
	if c.closed {
		return nil, callError("NewProgram", StatusInvalidContext, ErrClosed)
	}
	if len(source) == 0 {
		return nil, callError("NewProgram", StatusInvalidValue, fmt.Errorf("host backend: empty source"))
	}

	var names []string
	for _, m := range kernelDecl.FindAllSubmatch(source, -1) {
		names = append(names, string(m[1]))
	}
	if len(names) == 0 {
		return nil, callError("BuildProgram", StatusBuildProgramFailure,
			fmt.Errorf("host backend: source declares no kernels"))
	}

	defines, err := parseDefines(options)
	if err != nil {
		return nil, callError("BuildProgram", StatusBuildProgramFailure, err)
	}

	return &hostProgram{names: names, defines: defines}, nil
}

// parseDefines collects the macros defined by -DNAME, -DNAME=value and
// -D NAME options. Other options are ignored.
func parseDefines(options string) (map[string]string, error) {
	defines := make(map[string]string)

	fields := strings.Fields(options)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if !strings.HasPrefix(f, "-D") {
			continue
		}

		def := strings.TrimPrefix(f, "-D")
		if def == "" {
			i++
			if i == len(fields) {
				return nil, fmt.Errorf("host backend: -D without a macro name")
			}
			def = fields[i]
		}

		name, value, _ := strings.Cut(def, "=")
		if name == "" {
			return nil, fmt.Errorf("host backend: malformed define %q", def)
		}
		defines[name] = value
	}

	return defines, nil
}

func (c *hostContext) Close() error {
	c.closed = true
	return nil
}

type hostBuffer struct {
	precision PrecisionKind
	len       int
	data32    []float32
	data64    []float64
}

func (b *hostBuffer) Len() int {
	return b.len
}

func (b *hostBuffer) Precision() PrecisionKind {
	return b.precision
}

func (b *hostBuffer) Upload(src any) error {
	switch b.precision {
	case PrecisionFloat32:
		data, ok := src.([]float32)
		if !ok {
			return callError("WriteBuffer", StatusInvalidValue, fmt.Errorf("host backend: want []float32, got %T", src))
		}
		if len(data) < b.len {
			return callError("WriteBuffer", StatusInvalidValue, ErrLengthMismatch)
		}
		copy(b.data32, data[:b.len])
		return nil
	case PrecisionFloat64:
		data, ok := src.([]float64)
		if !ok {
			return callError("WriteBuffer", StatusInvalidValue, fmt.Errorf("host backend: want []float64, got %T", src))
		}
		if len(data) < b.len {
			return callError("WriteBuffer", StatusInvalidValue, ErrLengthMismatch)
		}
		copy(b.data64, data[:b.len])
		return nil
	default:
		return callError("WriteBuffer", StatusInvalidMemObject, ErrClosed)
	}
}

func (b *hostBuffer) Download(dst any) error {
	switch b.precision {
	case PrecisionFloat32:
		data, ok := dst.([]float32)
		if !ok {
			return callError("ReadBuffer", StatusInvalidValue, fmt.Errorf("host backend: want []float32, got %T", dst))
		}
		if len(data) < b.len {
			return callError("ReadBuffer", StatusInvalidValue, ErrLengthMismatch)
		}
		copy(data[:b.len], b.data32)
		return nil
	case PrecisionFloat64:
		data, ok := dst.([]float64)
		if !ok {
			return callError("ReadBuffer", StatusInvalidValue, fmt.Errorf("host backend: want []float64, got %T", dst))
		}
		if len(data) < b.len {
			return callError("ReadBuffer", StatusInvalidValue, ErrLengthMismatch)
		}
		copy(data[:b.len], b.data64)
		return nil
	default:
		return callError("ReadBuffer", StatusInvalidMemObject, ErrClosed)
	}
}

func (b *hostBuffer) Close() error {
	b.data32 = nil
	b.data64 = nil
	b.len = 0
	b.precision = PrecisionKind(0xff)
	return nil
}

type hostProgram struct {
	names   []string
	defines map[string]string
}

func (p *hostProgram) Kernels() []string {
	return append([]string(nil), p.names...)
}

func (p *hostProgram) NewKernel(name string) (Kernel, error) {
	declared := false
	for _, n := range p.names {
		if n == name {
			declared = true
			break
		}
	}
	if !declared {
		return nil, callError("CreateKernel", StatusInvalidKernelName,
			fmt.Errorf("host backend: program does not declare %q", name))
	}

	spec, ok := hostKernels[name]
	if !ok {
		return nil, callError("CreateKernel", StatusInvalidKernelName,
			fmt.Errorf("host backend: no host implementation of %q", name))
	}

	return &hostKernel{
		name:    name,
		spec:    spec,
		defines: p.defines,
		args:    make([]any, len(spec.args)),
	}, nil
}

func (p *hostProgram) Close() error {
	p.names = nil
	return nil
}

type hostKernel struct {
	name    string
	spec    hostKernelSpec
	defines map[string]string
	args    []any
}

func (k *hostKernel) Name() string {
	return k.name
}

func (k *hostKernel) SetArg(index int, value any) error {
	if index < 0 || index >= len(k.args) {
		return callError("SetKernelArg", StatusInvalidArgIndex,
			fmt.Errorf("%s: argument %d of %d", k.name, index, len(k.args)))
	}

	switch k.spec.args[index] {
	case argBuffer:
		for {
			u, ok := value.(interface{ Unwrap() Buffer })
			if !ok {
				break
			}
			value = u.Unwrap()
		}
		buf, ok := value.(*hostBuffer)
		if !ok || buf.len == 0 {
			return callError("SetKernelArg", StatusInvalidMemObject,
				fmt.Errorf("%s: argument %d is not a live host buffer", k.name, index))
		}
		k.args[index] = buf
	case argInt:
		v, ok := value.(int32)
		if !ok {
			return callError("SetKernelArg", StatusInvalidArgValue,
				fmt.Errorf("%s: argument %d wants int32, got %T", k.name, index, value))
		}
		k.args[index] = v
	}
	return nil
}

func (k *hostKernel) Close() error {
	k.args = nil
	return nil
}

// hostStream runs launches in order, each on its own goroutine, so Launch
// returns before the kernel has executed.
type hostStream struct {
	units int

	mu     sync.Mutex
	last   chan struct{}
	err    error
	closed bool
}

func (s *hostStream) Launch(ctx context.Context, kernel Kernel, global, local int) error {
	k, ok := kernel.(*hostKernel)
	if !ok || k.args == nil {
		return callError("EnqueueNDRangeKernel", StatusInvalidKernel, fmt.Errorf("host backend: foreign kernel %T", kernel))
	}
	if global <= 0 {
		return callError("EnqueueNDRangeKernel", StatusInvalidGlobalWorkSize,
			fmt.Errorf("%s: global size %d", k.name, global))
	}
	if local <= 0 || global%local != 0 {
		return callError("EnqueueNDRangeKernel", StatusInvalidWorkGroupSize,
			fmt.Errorf("%s: local size %d for global size %d", k.name, local, global))
	}
	for i, a := range k.args {
		if a == nil {
			return callError("EnqueueNDRangeKernel", StatusInvalidKernelArgs,
				fmt.Errorf("%s: argument %d not set", k.name, i))
		}
	}

	// Arguments are captured at enqueue time.
	run, err := k.spec.prepare(hostLaunch{
		args:    append([]any(nil), k.args...),
		global:  global,
		local:   local,
		defines: k.defines,
	})
	if err != nil {
		var ce *CallError
		if errors.As(err, &ce) {
			return err
		}
		return callError("EnqueueNDRangeKernel", StatusInvalidKernelArgs, fmt.Errorf("%s: %w", k.name, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return callError("EnqueueNDRangeKernel", StatusInvalidCommandQueue, ErrClosed)
	}

	prev := s.last
	done := make(chan struct{})
	s.last = done

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}

		err := run(ctx, s.units)

		s.mu.Lock()
		if err != nil && s.err == nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.err = errors.Wrap(err, k.name)
			} else {
				s.err = callError("Finish", StatusOutOfResources, fmt.Errorf("%s: %w", k.name, err))
			}
		}
		s.mu.Unlock()
	}()

	return nil
}

func (s *hostStream) Synchronize() error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last != nil {
		<-last
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *hostStream) Close() error {
	err := s.Synchronize()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}
