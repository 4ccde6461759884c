package cpu

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/mem"
)

// Host describes the host processor as a compute device.
type Host struct {
	Brand    string
	Vendor   string
	Cores    int // logical cores, at least 1
	MemoryMB int // 0 when the total cannot be read
}

// DetectHost identifies the host processor and its total memory.
func DetectHost() Host {
	h := Host{
		Brand:  cpuid.CPU.BrandName,
		Vendor: cpuid.CPU.VendorString,
		Cores:  cpuid.CPU.LogicalCores,
	}

	if h.Brand == "" {
		h.Brand = runtime.GOARCH
	}
	if h.Vendor == "" {
		h.Vendor = "unknown"
	}
	if h.Cores < 1 {
		h.Cores = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		h.MemoryMB = int(vm.Total >> 20)
	}

	return h
}
