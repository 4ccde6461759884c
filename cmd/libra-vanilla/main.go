// Command libra-vanilla runs the combined permutation and butterfly kernel
// and checks it against the host reference FFT.
//
// Usage:
//
//	libra-vanilla [-n size] [-h]
package main

import (
	"os"

	"github.com/cwbudde/libra/internal/harness"
)

func main() {
	os.Exit(harness.Main(os.Args[1:], harness.VariantVanilla, os.Stdout, os.Stderr))
}
