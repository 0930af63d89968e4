package simd

import "encoding/binary"

// LastIndexSlash returns the index of the last '/' in p, or -1 if p contains
// no slash. It is equivalent to bytes.LastIndexByte(p, '/') and is the
// basename-split primitive for the CPU matching backends.
//
// The scan walks backward in 32-byte blocks. Each block is reduced with four
// broadcast compares OR-ed together; only blocks that contain at least one
// slash are re-scanned per byte. Paths are slash-dense near the front and
// slash-free near the end, so the common case retires 32 bytes per iteration
// with no byte-level work.
func LastIndexSlash(p []byte) int {
	i := len(p)

	for i >= searchStride {
		base := i - searchStride

		var any uint64
		for w := 0; w < searchStride; w += 8 {
			chunk := binary.LittleEndian.Uint64(p[base+w:])
			any |= containsByteWord(chunk, '/')
		}
		if any != 0 {
			return lastSlashScalar(p, base, i)
		}
		i = base
	}

	return lastSlashScalar(p, 0, i)
}

// lastSlashScalar scans p[lo:hi] backward one byte at a time.
func lastSlashScalar(p []byte, lo, hi int) int {
	for j := hi - 1; j >= lo; j-- {
		if p[j] == '/' {
			return j
		}
	}
	return -1
}

// Basename returns the final '/'-separated component of path. A path with no
// slash is its own basename; a path ending in '/' yields the empty string.
func Basename(path []byte) []byte {
	if i := LastIndexSlash(path); i >= 0 {
		return path[i+1:]
	}
	return path
}
