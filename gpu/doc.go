// Package gpu implements the batch dispatch layer: packing path batches into
// typed buffers, probing device capabilities, selecting an execution backend,
// and running the match_names / regex_match_names kernels on Metal, Vulkan,
// or the CPU fallbacks.
//
// The package exposes four drivers behind one interface:
//
//   - Scalar: sequential reference CPU matcher
//   - SIMD: vector-assisted CPU matcher, parallel across a worker pool
//   - Metal: native GPU on darwin (cgo)
//   - Vulkan: native GPU on linux (cgo + runtime SPIR-V compilation)
//
// All four produce bit-identical match vectors for every input; the
// equivalence tests in this package enforce it for the drivers available on
// the host. Backend choice is made per batch by the Selector unless the user
// forces one.
package gpu
