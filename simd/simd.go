// Package simd provides vectorized byte-scanning primitives for the path
// matching engines. The hot operations are locating the final '/' of a path
// (basename split) and pre-folding pattern bytes to lowercase for
// case-insensitive matching.
//
// The implementations process fixed-width strides (32 bytes for searching,
// 16 bytes for folding) using SWAR (SIMD Within A Register) arithmetic on
// uint64 words, so they are portable and branch-light on every architecture.
// CPU feature flags are still probed at init: the capability tier is exported
// so callers (notably the backend selector) can distinguish a vector-capable
// host from a baseline one.
package simd

import "golang.org/x/sys/cpu"

// CPU feature flags probed once at package initialization.
var (
	// hasAVX2 indicates 256-bit vector support on x86-64 (Haswell+).
	hasAVX2 = cpu.X86.HasAVX2

	// hasASIMD indicates NEON/Advanced SIMD on ARM64. Always true on ARMv8,
	// but probing keeps the dispatch symmetric with x86.
	hasASIMD = cpu.ARM64.HasASIMD
)

// Accelerated reports whether the host CPU advertises wide vector support
// (AVX2 on x86-64, Advanced SIMD on ARM64). The matching kernels themselves
// are SWAR-based and run everywhere; this flag only feeds backend selection.
func Accelerated() bool {
	return hasAVX2 || hasASIMD
}

const (
	// searchStride is the block size for the basename scan. A 32-byte block
	// is reduced with four 64-bit broadcast compares before any per-byte work.
	searchStride = 32

	// foldStride is the block size for lowercase pre-folding.
	foldStride = 16
)

// Broadcast constants for SWAR byte tests.
const (
	ones  = 0x0101010101010101
	highs = 0x8080808080808080
	low7  = 0x7f7f7f7f7f7f7f7f
)

// containsByteWord reports a nonzero value when any byte of w equals b.
// Classic zero-byte detection on w XOR broadcast(b).
func containsByteWord(w uint64, b byte) uint64 {
	x := w ^ (ones * uint64(b))
	return (x - ones) &^ x & highs
}
