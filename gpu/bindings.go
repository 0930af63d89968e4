package gpu

import (
	"encoding/binary"
	"unsafe"

	"github.com/gpufind/gpufind/glob"
)

// Buffer binding convention, identical across Metal and Vulkan so the host
// packs one layout:
//
//	0: config uniform (32 bytes, std140-compatible)
//	1: pattern bytes (glob) or packed state table words (regex), read-only
//	2: packed names data, read-only
//	3: offsets array, read-only
//	4: lengths array, read-only
//	5: results array, writable
//	6: atomic match counter, single u32, writable
//
// The regex pipeline additionally binds:
//
//	7: bitmap pool, read-only
//	8: regex header (16 bytes), uniform
const (
	bindingConfig   = 0
	bindingPattern  = 1
	bindingNames    = 2
	bindingOffsets  = 3
	bindingLengths  = 4
	bindingResults  = 5
	bindingCounter  = 6
	bindingBitmaps  = 7
	bindingRegexHdr = 8
)

// dispatchConfig is the 32-byte uniform at binding 0:
// {num_names, pattern_len, flags, max_name_len, names_offset, lengths_offset,
// _pad, _pad}, all u32, little-endian, std140-compatible.
//
// names_offset and lengths_offset support packing the three data arrays into
// a single buffer; with the separate bindings above they are zero.
type dispatchConfig struct {
	numNames      uint32
	patternLen    uint32
	flags         uint32
	maxNameLen    uint32
	namesOffset   uint32
	lengthsOffset uint32
}

// configSize is the encoded size of dispatchConfig including padding.
const configSize = 32

func newDispatchConfig(b *Batch, patternLen int, opts glob.Options) dispatchConfig {
	return dispatchConfig{
		numNames:   uint32(b.Len()),
		patternLen: uint32(patternLen),
		flags:      uint32(opts),
		maxNameLen: b.MaxNameLen(),
	}
}

// bytes encodes the config for upload.
func (c dispatchConfig) bytes() []byte {
	out := make([]byte, configSize)
	binary.LittleEndian.PutUint32(out[0:], c.numNames)
	binary.LittleEndian.PutUint32(out[4:], c.patternLen)
	binary.LittleEndian.PutUint32(out[8:], c.flags)
	binary.LittleEndian.PutUint32(out[12:], c.maxNameLen)
	binary.LittleEndian.PutUint32(out[16:], c.namesOffset)
	binary.LittleEndian.PutUint32(out[20:], c.lengthsOffset)
	return out
}

// u32Bytes serializes a u32 slice little-endian for upload. The host packs
// explicitly instead of aliasing memory so the layout is the same on every
// platform.
func u32Bytes(ws []uint32) []byte {
	out := make([]byte, len(ws)*4)
	for i, w := range ws {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// decodeResults parses the readback of the results buffer, truncated
// defensively to n slots regardless of what the kernel wrote.
func decodeResults(raw []byte, n int) []MatchResult {
	if len(raw) > n*8 {
		raw = raw[:n*8]
	}
	out := make([]MatchResult, 0, n)
	for i := 0; i+8 <= len(raw); i += 8 {
		out = append(out, MatchResult{
			NameIdx: binary.LittleEndian.Uint32(raw[i:]),
			Matched: binary.LittleEndian.Uint32(raw[i+4:]),
		})
	}
	return out
}

// gridGroups returns the number of workgroups covering n threads.
func gridGroups(n int) int {
	return (n + WorkgroupSize - 1) / WorkgroupSize
}

// ptr returns the first-byte pointer of a slice, nil for empty slices. Used
// by the cgo drivers when handing buffers across the boundary.
func ptr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}
