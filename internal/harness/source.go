package harness

import (
	"os"

	"github.com/pkg/errors"
)

// ErrKernelSource is returned when the kernel source cannot be loaded.
var ErrKernelSource = errors.New("harness: failed to load kernel source")

// LoadKernelSource reads the kernel source at path.
func LoadKernelSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrKernelSource, "%v", err)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrKernelSource, "%s is empty", path)
	}
	return data, nil
}
