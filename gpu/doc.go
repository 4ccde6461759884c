// Package gpu abstracts the external compute backend that runs the
// permutation and transform kernels.
//
// A Backend hands out Contexts bound to one device. A Context allocates flat
// float Buffers, execution Streams and Programs built from kernel source;
// Programs create Kernels whose arguments are set by index before a Stream
// launches them. Launches are asynchronous: Stream.Synchronize blocks until
// every launched kernel has finished.
//
// Session groups these handles for one run and releases them in reverse
// acquisition order. Select picks the backend for a run: the registered one,
// else an available backend compiled in by build tag (OpenCL with -tags
// opencl), else the host backend, which executes the kernels on the CPU.
package gpu
