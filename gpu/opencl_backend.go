//go:build opencl

package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DefaultICDDir is where OpenCL ICD loaders find vendor registrations.
const DefaultICDDir = "/etc/OpenCL/vendors"

func init() {
	builtins = append(builtins, func() Backend { return NewOpenCLBackend() })
}

// OpenCLBackend discovers OpenCL platforms from the ICD vendor registry.
// Each *.icd file names one vendor library and is reported as one device.
// Contexts cannot be created until a binding to the ICD loader exists, so
// NewContext fails with StatusDeviceNotFound for every device.
type OpenCLBackend struct {
	ICDDir string
}

// NewOpenCLBackend returns a backend reading DefaultICDDir.
func NewOpenCLBackend() *OpenCLBackend {
	return &OpenCLBackend{ICDDir: DefaultICDDir}
}

func (b *OpenCLBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "opencl",
		Version:     "icd",
		Description: "OpenCL platforms registered with the ICD loader",
	}
}

// Available reports whether at least one vendor is registered.
func (b *OpenCLBackend) Available() bool {
	devices, err := b.Devices()
	return err == nil && len(devices) > 0
}

func (b *OpenCLBackend) Devices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(b.ICDDir)
	if err != nil {
		return nil, errors.Wrapf(ErrBackendUnavailable, "read %s: %v", b.ICDDir, err)
	}

	var devices []DeviceInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".icd" {
			continue
		}

		lib, err := os.ReadFile(filepath.Join(b.ICDDir, e.Name()))
		if err != nil {
			continue
		}

		devices = append(devices, DeviceInfo{
			Name:   strings.TrimSpace(string(lib)),
			Vendor: strings.TrimSuffix(e.Name(), ".icd"),
			Driver: "opencl-icd",
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Vendor < devices[j].Vendor })
	return devices, nil
}

func (b *OpenCLBackend) NewContext(deviceIndex int) (Context, error) {
	devices, err := b.Devices()
	if err != nil {
		return nil, callError("CreateContext", StatusDeviceNotFound, err)
	}
	if deviceIndex < 0 || deviceIndex >= len(devices) {
		return nil, callError("CreateContext", StatusDeviceNotFound,
			fmt.Errorf("opencl: device index %d of %d", deviceIndex, len(devices)))
	}

	return nil, callError("CreateContext", StatusDeviceNotFound,
		fmt.Errorf("opencl: no loader binding for %s (%s)", devices[deviceIndex].Vendor, devices[deviceIndex].Name))
}
