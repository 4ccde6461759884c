package gpu

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Session owns the backend handles of one run: a context, one stream, at
// most one program, and the kernels and buffers created through it.
// Close releases all of them; it is safe to call on a partially built
// Session and more than once.
type Session struct {
	log     logrus.FieldLogger
	info    BackendInfo
	ctx     Context
	stream  Stream
	program Program
	kernels []Kernel
	buffers []Buffer
}

// OpenSession creates a context on the given device of b and one stream.
// On failure every handle acquired so far is released.
func OpenSession(b Backend, deviceIndex int, log logrus.FieldLogger) (*Session, error) {
	if b == nil {
		return nil, ErrNoBackend
	}
	if !b.Available() {
		return nil, errors.Wrapf(ErrBackendUnavailable, "backend %s", b.Info().Name)
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	s := &Session{log: log, info: b.Info()}

	log.WithField("backend", s.info.Name).Info("Create context")
	ctx, err := b.NewContext(deviceIndex)
	if err != nil {
		return nil, asCallError("NewContext", err)
	}
	s.ctx = ctx

	stream, err := ctx.NewStream()
	if err != nil {
		_ = s.Close()
		return nil, asCallError("NewStream", err)
	}
	s.stream = stream

	dev := ctx.Device()
	log.WithFields(logrus.Fields{
		"device": dev.Name,
		"cap":    dev.ComputeCap,
		"units":  dev.ComputeUnits,
	}).Debug("context ready")

	return s, nil
}

// Backend returns information about the backend the session runs on.
func (s *Session) Backend() BackendInfo {
	return s.info
}

// Device returns the device the session's context is bound to.
func (s *Session) Device() DeviceInfo {
	if s.ctx == nil {
		return DeviceInfo{}
	}
	return s.ctx.Device()
}

// Stream returns the session's execution stream.
func (s *Session) Stream() Stream {
	return s.stream
}

// Build builds the session's program from kernel source with the given
// compiler options.
func (s *Session) Build(source []byte, options string) error {
	if s.program != nil {
		return callError("BuildProgram", StatusInvalidProgram, errors.New("program already built"))
	}

	s.log.WithField("options", options).Info("Create program from kernel source")
	p, err := s.ctx.NewProgram(source, options)
	if err != nil {
		return asCallError("BuildProgram", err)
	}
	s.program = p

	s.log.WithField("kernels", p.Kernels()).Debug("program built")
	return nil
}

// Kernel creates a kernel from the built program.
func (s *Session) Kernel(name string) (Kernel, error) {
	if s.program == nil {
		return nil, callError("CreateKernel", StatusInvalidProgram, errors.New("no program built"))
	}

	k, err := s.program.NewKernel(name)
	if err != nil {
		return nil, asCallError("CreateKernel", err)
	}
	s.kernels = append(s.kernels, k)
	return k, nil
}

// Buffer allocates a device buffer of elemCount floats.
func (s *Session) Buffer(elemCount int, precision PrecisionKind) (Buffer, error) {
	b, err := s.ctx.NewBuffer(elemCount, precision)
	if err != nil {
		return nil, asCallError("CreateBuffer", err)
	}
	s.buffers = append(s.buffers, b)
	return b, nil
}

// Close drains the stream and releases every handle in reverse acquisition
// order. It returns the first release error.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.stream != nil {
		keep(s.stream.Close())
		s.stream = nil
	}
	for i := len(s.kernels) - 1; i >= 0; i-- {
		keep(s.kernels[i].Close())
	}
	s.kernels = nil
	if s.program != nil {
		keep(s.program.Close())
		s.program = nil
	}
	for i := len(s.buffers) - 1; i >= 0; i-- {
		keep(s.buffers[i].Close())
	}
	s.buffers = nil
	if s.ctx != nil {
		keep(s.ctx.Close())
		s.ctx = nil
	}

	return firstErr
}

func asCallError(call string, err error) error {
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return callError(call, StatusOf(err), err)
}
