package gpu

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoBackend is returned when no backend is registered.
	ErrNoBackend = errors.New("libra/gpu: no backend registered")

	// ErrBackendUnavailable is returned when the backend is registered but not available
	// on the current system (e.g., no device, driver missing).
	ErrBackendUnavailable = errors.New("libra/gpu: backend unavailable")

	// ErrLengthMismatch is returned when a host slice does not match a buffer.
	ErrLengthMismatch = errors.New("libra/gpu: length mismatch")

	// ErrClosed is returned when a released handle is used.
	ErrClosed = errors.New("libra/gpu: handle closed")
)

// CallError reports a failed backend call together with its status code.
type CallError struct {
	Call   string
	Status Status
	Err    error
}

func (e *CallError) Error() string {
	msg := fmt.Sprintf("%s returned %d (%s)", e.Call, int32(e.Status), e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func callError(call string, status Status, err error) error {
	return &CallError{Call: call, Status: status, Err: err}
}

// StatusOf returns the status carried by err, StatusSuccess for nil, and
// StatusInvalidValue for errors that did not come from a backend call.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}

	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return StatusInvalidValue
}
