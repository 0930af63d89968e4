package simd

import (
	"bytes"
	"strings"
	"testing"
)

// TestLastIndexSlash verifies agreement with bytes.LastIndexByte across
// representative path shapes, including strides larger than one block.
func TestLastIndexSlash(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"no_slash", "file.txt"},
		{"root", "/"},
		{"simple", "/usr/bin/find"},
		{"trailing_slash", "/usr/bin/"},
		{"only_basename_long", strings.Repeat("a", 100)},
		{"long_tail", "/home/user/" + strings.Repeat("b", 80) + ".txt"},
		{"slash_in_last_block", strings.Repeat("x", 40) + "/name"},
		{"slash_at_block_boundary", strings.Repeat("y", 31) + "/" + strings.Repeat("z", 32)},
		{"many_slashes", strings.Repeat("/a", 64)},
		{"exactly_32", strings.Repeat("c", 16) + "/" + strings.Repeat("d", 15)},
		{"binary_bytes", "\x00\xff/\x80\x01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := []byte(tt.path)
			got := LastIndexSlash(p)
			want := bytes.LastIndexByte(p, '/')
			if got != want {
				t.Errorf("LastIndexSlash(%q) = %d, want %d", tt.path, got, want)
			}
		})
	}
}

func TestBasename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"file.txt", "file.txt"},
		{"/usr/bin/find", "find"},
		{"dir/", ""},
		{"/", ""},
		{"a/b/c", "c"},
	}

	for _, tt := range tests {
		if got := string(Basename([]byte(tt.path))); got != tt.want {
			t.Errorf("Basename(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func FuzzLastIndexSlash(f *testing.F) {
	f.Add([]byte("/usr/local/share"))
	f.Add([]byte(strings.Repeat("q", 64)))
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, p []byte) {
		got := LastIndexSlash(p)
		want := bytes.LastIndexByte(p, '/')
		if got != want {
			t.Errorf("LastIndexSlash(%q) = %d, want %d", p, got, want)
		}
	})
}

func BenchmarkLastIndexSlash(b *testing.B) {
	path := []byte("/home/user/projects/deep/nested/tree/" + strings.Repeat("n", 64) + ".txt")
	b.SetBytes(int64(len(path)))
	for i := 0; i < b.N; i++ {
		LastIndexSlash(path)
	}
}
