// Package cpu reports host CPU features for describing the host backend's
// compute device.
package cpu

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Features describes the SIMD features of the host CPU.
type Features struct {
	HasSSE2   bool
	HasSSE41  bool
	HasAVX    bool
	HasAVX2   bool
	HasAVX512 bool
	HasNEON   bool
	HasSVE    bool

	Architecture string
}

// DetectFeatures reports the available CPU features for the current process.
// Flags for other architectures stay false.
func DetectFeatures() Features {
	return Features{
		HasSSE2:      cpu.X86.HasSSE2,
		HasSSE41:     cpu.X86.HasSSE41,
		HasAVX:       cpu.X86.HasAVX,
		HasAVX2:      cpu.X86.HasAVX2,
		HasAVX512:    cpu.X86.HasAVX512,
		HasNEON:      cpu.ARM64.HasASIMD,
		HasSVE:       cpu.ARM64.HasSVE,
		Architecture: runtime.GOARCH,
	}
}

// String returns the architecture followed by the detected features,
// e.g. "amd64:sse2,sse4.1,avx,avx2".
func (f Features) String() string {
	var names []string

	for _, feat := range []struct {
		ok   bool
		name string
	}{
		{f.HasSSE2, "sse2"},
		{f.HasSSE41, "sse4.1"},
		{f.HasAVX, "avx"},
		{f.HasAVX2, "avx2"},
		{f.HasAVX512, "avx512"},
		{f.HasNEON, "neon"},
		{f.HasSVE, "sve"},
	} {
		if feat.ok {
			names = append(names, feat.name)
		}
	}

	if len(names) == 0 {
		return f.Architecture + ":generic"
	}

	return f.Architecture + ":" + strings.Join(names, ",")
}
