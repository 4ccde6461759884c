package gpu

import (
	"context"
	"sync"
)

// Backend is implemented by compute backends (OpenCL, CUDA, host emulation).
// It is responsible for device discovery and context creation.
type Backend interface {
	Info() BackendInfo
	Available() bool
	Devices() ([]DeviceInfo, error)
	NewContext(deviceIndex int) (Context, error)
}

// Context represents a backend-specific context tied to a device.
type Context interface {
	Device() DeviceInfo
	// NewBuffer allocates a device buffer of elemCount floats.
	NewBuffer(elemCount int, precision PrecisionKind) (Buffer, error)
	// NewStream creates an execution stream/queue.
	NewStream() (Stream, error)
	// NewProgram builds a program from kernel source. options is passed to
	// the compiler as a space-separated list, e.g. "-DNAME".
	NewProgram(source []byte, options string) (Program, error)
	Close() error
}

// Buffer is a flat device buffer. Complex data is stored interleaved
// (re0, im0, re1, im1, ...).
type Buffer interface {
	Len() int
	Precision() PrecisionKind
	// Upload copies from host to device. It blocks until the copy is done.
	Upload(src any) error
	// Download copies from device to host. It blocks until the copy is done.
	Download(dst any) error
	Close() error
}

// Program is a built kernel program.
type Program interface {
	// Kernels lists the kernel names the program declares.
	Kernels() []string
	NewKernel(name string) (Kernel, error)
	Close() error
}

// Kernel is a kernel entry point with its bound arguments.
type Kernel interface {
	Name() string
	// SetArg binds a Buffer or an int32 to the argument at index. Buffers
	// that wrap another Buffer expose it through an Unwrap() Buffer method.
	SetArg(index int, value any) error
	Close() error
}

// Stream represents an execution queue/stream.
type Stream interface {
	// Launch enqueues kernel over global work items in work groups of local
	// items. It returns once the launch is queued.
	Launch(ctx context.Context, kernel Kernel, global, local int) error
	// Synchronize blocks until every launched kernel has finished and
	// returns the first execution error.
	Synchronize() error
	Close() error
}

var (
	backendMu sync.RWMutex
	backend   Backend
)

// RegisterBackend registers a backend. Passing nil clears the backend.
func RegisterBackend(b Backend) {
	backendMu.Lock()
	backend = b
	backendMu.Unlock()
}

// CurrentBackendInfo reports the currently registered backend, if any.
func CurrentBackendInfo() (BackendInfo, bool) {
	b := Current()
	if b == nil {
		return BackendInfo{}, false
	}
	return b.Info(), true
}

// Current returns the registered backend or nil.
func Current() Backend {
	backendMu.RLock()
	b := backend
	backendMu.RUnlock()
	return b
}

// builtins lists constructors of optional backends compiled in by build tags,
// in order of preference.
var builtins []func() Backend

// Select returns the registered backend. If none is registered, it registers
// and returns the first available built-in backend, or the host backend.
func Select() Backend {
	backendMu.Lock()
	defer backendMu.Unlock()

	if backend != nil {
		return backend
	}

	for _, newBackend := range builtins {
		if b := newBackend(); b.Available() {
			backend = b
			return b
		}
	}

	backend = NewHostBackend()
	return backend
}
