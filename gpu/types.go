package gpu

import "fmt"

// PrecisionKind describes the element type of a device buffer.
type PrecisionKind uint8

const (
	PrecisionFloat32 PrecisionKind = iota
	PrecisionFloat64
)

// String returns a human-readable name for the precision.
func (p PrecisionKind) String() string {
	switch p {
	case PrecisionFloat32:
		return "float32"
	case PrecisionFloat64:
		return "float64"
	default:
		return "unknown"
	}
}

// DeviceInfo describes a compute device.
type DeviceInfo struct {
	Name       string
	Vendor     string
	Driver     string
	MemoryMB   int
	ComputeCap string

	// ComputeUnits bounds how many work items run at once.
	ComputeUnits int
}

// BackendInfo describes a backend implementation.
type BackendInfo struct {
	Name        string
	Version     string
	Description string
}

// Status is a backend call status code. Values follow the OpenCL numbering.
type Status int32

const (
	StatusSuccess               Status = 0
	StatusDeviceNotFound        Status = -1
	StatusOutOfResources        Status = -5
	StatusBuildProgramFailure   Status = -11
	StatusInvalidValue          Status = -30
	StatusInvalidDevice         Status = -33
	StatusInvalidContext        Status = -34
	StatusInvalidCommandQueue   Status = -36
	StatusInvalidMemObject      Status = -38
	StatusInvalidProgram        Status = -44
	StatusInvalidKernelName     Status = -46
	StatusInvalidKernel         Status = -48
	StatusInvalidArgIndex       Status = -49
	StatusInvalidArgValue       Status = -50
	StatusInvalidKernelArgs     Status = -52
	StatusInvalidWorkGroupSize  Status = -54
	StatusInvalidBufferSize     Status = -61
	StatusInvalidGlobalWorkSize Status = -63
)

var statusNames = map[Status]string{
	StatusSuccess:               "CL_SUCCESS",
	StatusDeviceNotFound:        "CL_DEVICE_NOT_FOUND",
	StatusOutOfResources:        "CL_OUT_OF_RESOURCES",
	StatusBuildProgramFailure:   "CL_BUILD_PROGRAM_FAILURE",
	StatusInvalidValue:          "CL_INVALID_VALUE",
	StatusInvalidDevice:         "CL_INVALID_DEVICE",
	StatusInvalidContext:        "CL_INVALID_CONTEXT",
	StatusInvalidCommandQueue:   "CL_INVALID_COMMAND_QUEUE",
	StatusInvalidMemObject:      "CL_INVALID_MEM_OBJECT",
	StatusInvalidProgram:        "CL_INVALID_PROGRAM",
	StatusInvalidKernelName:     "CL_INVALID_KERNEL_NAME",
	StatusInvalidKernel:         "CL_INVALID_KERNEL",
	StatusInvalidArgIndex:       "CL_INVALID_ARG_INDEX",
	StatusInvalidArgValue:       "CL_INVALID_ARG_VALUE",
	StatusInvalidKernelArgs:     "CL_INVALID_KERNEL_ARGS",
	StatusInvalidWorkGroupSize:  "CL_INVALID_WORK_GROUP_SIZE",
	StatusInvalidBufferSize:     "CL_INVALID_BUFFER_SIZE",
	StatusInvalidGlobalWorkSize: "CL_INVALID_GLOBAL_WORK_SIZE",
}

// String returns the symbolic name of the status, or its number.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}
