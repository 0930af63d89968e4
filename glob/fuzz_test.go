package glob

import (
	"testing"

	"github.com/gpufind/gpufind/simd"
)

// matchRecursive is a naive exponential reference matcher used only to
// cross-check the iterative two-cursor implementation under fuzzing.
func matchRecursive(pat, text []byte, ci bool) bool {
	if len(pat) == 0 {
		return len(text) == 0
	}
	switch c := pat[0]; c {
	case '*':
		for i := 0; i <= len(text); i++ {
			if matchRecursive(pat[1:], text[i:], ci) {
				return true
			}
		}
		return false
	case '?':
		return len(text) > 0 && matchRecursive(pat[1:], text[1:], ci)
	case '[':
		if len(text) == 0 {
			return false
		}
		ok, consumed := matchClass(pat, text[0], ci)
		if consumed == 0 {
			return charsEqual(c, text[0], ci) && matchRecursive(pat[1:], text[1:], ci)
		}
		return ok && matchRecursive(pat[consumed:], text[1:], ci)
	default:
		return len(text) > 0 && charsEqual(c, text[0], ci) && matchRecursive(pat[1:], text[1:], ci)
	}
}

func FuzzMatch(f *testing.F) {
	f.Add("*.txt", "file.txt")
	f.Add("[a-z]?*", "qx")
	f.Add("[!0-9]*[", "x[")
	f.Add("a*b*c*", "aXbYcZ")
	f.Fuzz(func(t *testing.T, pattern, text string) {
		// Bound the exponential reference and cap '*' count to keep the
		// oracle tractable.
		if len(pattern) > 16 || len(text) > 24 {
			t.Skip()
		}
		stars := 0
		for i := 0; i < len(pattern); i++ {
			if pattern[i] == '*' {
				stars++
			}
		}
		if stars > 4 {
			t.Skip()
		}

		for _, ci := range []bool{false, true} {
			pat := []byte(pattern)
			if ci {
				pat = simd.FoldLower(pat)
			}
			got := matchBytes(pat, []byte(text), ci, false)
			want := matchRecursive(pat, []byte(text), ci)
			if got != want {
				t.Errorf("matchBytes(%q, %q, ci=%v) = %v, reference = %v",
					pattern, text, ci, got, want)
			}
		}
	})
}
