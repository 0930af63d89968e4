package regex

import "encoding/binary"

// GPU-side encoding of a Program.
//
// Each 12-byte state record packs into three little-endian u32 words:
//
//	word0 = type | flags<<8 | out<<16
//	word1 = out2 | literal<<16 | group_idx<<24
//	word2 = bitmap_offset
//
// Both shader dialects unpack with the same shifts, and the host encodes
// explicitly rather than reinterpreting struct memory, so the layout is
// identical on every platform.

// StateWords is the number of u32 words per packed state record.
const StateWords = 3

// PackWords returns the packed state table, StateWords words per state.
func (p *Program) PackWords() []uint32 {
	words := make([]uint32, 0, len(p.States)*StateWords)
	for _, st := range p.States {
		words = append(words,
			uint32(st.Type)|uint32(st.Flags)<<8|uint32(st.Out)<<16,
			uint32(st.Out2)|uint32(st.Literal)<<16|uint32(st.GroupIdx)<<24,
			st.BitmapOffset,
		)
	}
	return words
}

// PackBytes returns the state table as raw little-endian bytes, 12 per
// state, for upload into a storage buffer.
func (p *Program) PackBytes() []byte {
	words := p.PackWords()
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// BitmapBytes returns the bitmap pool as raw little-endian bytes.
func (p *Program) BitmapBytes() []byte {
	out := make([]byte, len(p.Bitmaps)*4)
	for i, w := range p.Bitmaps {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// HeaderBytes returns the 16-byte little-endian program header.
func (h Header) HeaderBytes() []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:], h.NumStates)
	binary.LittleEndian.PutUint32(out[4:], h.StartState)
	binary.LittleEndian.PutUint32(out[8:], h.NumGroups)
	binary.LittleEndian.PutUint32(out[12:], h.Flags)
	return out
}
