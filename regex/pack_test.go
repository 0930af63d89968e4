package regex

import (
	"encoding/binary"
	"testing"
)

// TestPackWords verifies the little-endian field packing the shaders rely on.
func TestPackWords(t *testing.T) {
	prog := &Program{
		States: []State{
			{Type: TypeLiteral, Flags: 0, Out: 0x1234, Out2: 0x5678, Literal: 'x', GroupIdx: 7, BitmapOffset: 0xdeadbeef},
		},
	}

	words := prog.PackWords()
	if len(words) != StateWords {
		t.Fatalf("len(words) = %d, want %d", len(words), StateWords)
	}

	if got, want := words[0], uint32(TypeLiteral)|0<<8|0x1234<<16; got != uint32(want) {
		t.Errorf("word0 = %#x, want %#x", got, want)
	}
	if got, want := words[1], uint32(0x5678)|uint32('x')<<16|7<<24; got != want {
		t.Errorf("word1 = %#x, want %#x", got, want)
	}
	if got := words[2]; got != 0xdeadbeef {
		t.Errorf("word2 = %#x, want 0xdeadbeef", got)
	}
}

// TestPackBytes verifies the byte-level record layout:
// {type u8, flags u8, out u16, out2 u16, literal u8, group_idx u8, bitmap_offset u32}.
func TestPackBytes(t *testing.T) {
	prog := &Program{
		States: []State{
			{Type: TypeCharClass, Flags: FlagNegated, Out: 0x0102, Out2: 0x0304, Literal: 0xaa, GroupIdx: 0xbb, BitmapOffset: 0x11223344},
		},
	}

	b := prog.PackBytes()
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}

	if b[0] != byte(TypeCharClass) || b[1] != FlagNegated {
		t.Errorf("type/flags bytes = %#x %#x", b[0], b[1])
	}
	if binary.LittleEndian.Uint16(b[2:]) != 0x0102 {
		t.Errorf("out = %#x, want 0x0102", binary.LittleEndian.Uint16(b[2:]))
	}
	if binary.LittleEndian.Uint16(b[4:]) != 0x0304 {
		t.Errorf("out2 = %#x, want 0x0304", binary.LittleEndian.Uint16(b[4:]))
	}
	if b[6] != 0xaa || b[7] != 0xbb {
		t.Errorf("literal/group bytes = %#x %#x", b[6], b[7])
	}
	if binary.LittleEndian.Uint32(b[8:]) != 0x11223344 {
		t.Errorf("bitmap_offset = %#x", binary.LittleEndian.Uint32(b[8:]))
	}
}

// TestBitmapEncoding checks bit numbering within the pool: [a-z] sets bits
// 97..122 in little-endian 32-bit words.
func TestBitmapEncoding(t *testing.T) {
	prog := MustCompile("[a-z]", false)
	if len(prog.Bitmaps) != 8 {
		t.Fatalf("bitmap pool = %d words, want 8", len(prog.Bitmaps))
	}

	for c := 0; c < 256; c++ {
		w := prog.Bitmaps[c>>5]
		got := w&(1<<(uint32(c)&31)) != 0
		want := c >= 'a' && c <= 'z'
		if got != want {
			t.Errorf("bit %d = %v, want %v", c, got, want)
		}
	}
}

// TestBitmapCaseMirroring checks compile-time mirroring of letter bits.
func TestBitmapCaseMirroring(t *testing.T) {
	prog := MustCompile("[a-c]", true)
	for _, c := range []byte{'a', 'b', 'c', 'A', 'B', 'C'} {
		if !prog.classMember(prog.States[0].BitmapOffset, 0, c) {
			t.Errorf("folded class should contain %q", c)
		}
	}
	if prog.classMember(prog.States[0].BitmapOffset, 0, 'd') {
		t.Error("folded class should not contain 'd'")
	}
}

func TestHeaderBytes(t *testing.T) {
	h := Header{NumStates: 3, StartState: 1, NumGroups: 2, Flags: uint32(FlagAnchoredStart)}
	b := h.HeaderBytes()
	if len(b) != 16 {
		t.Fatalf("header length = %d, want 16", len(b))
	}
	if binary.LittleEndian.Uint32(b[0:]) != 3 ||
		binary.LittleEndian.Uint32(b[4:]) != 1 ||
		binary.LittleEndian.Uint32(b[8:]) != 2 ||
		binary.LittleEndian.Uint32(b[12:]) != uint32(FlagAnchoredStart) {
		t.Errorf("header bytes wrong: % x", b)
	}
}
