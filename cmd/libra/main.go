// Command libra permutes a sample array with the half-width bit-reversal
// kernel on the compute backend and checks it against the host reference.
//
// Usage:
//
//	libra [-n size] [-h]
//
// The kernel source is read from kernel.cl in the working directory. The
// exit code is the number of mismatching samples (0 = pass, capped at 254);
// 255 signals a usage or backend error.
package main

import (
	"os"

	"github.com/cwbudde/libra/internal/harness"
)

func main() {
	os.Exit(harness.Main(os.Args[1:], harness.VariantPermute, os.Stdout, os.Stderr))
}
