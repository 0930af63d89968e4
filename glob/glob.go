// Package glob implements the shell-style name matching semantics shared by
// every execution backend: scalar CPU, SIMD-assisted CPU, and the GPU compute
// kernels. The scalar matcher in this package is the reference; the other
// backends must agree with it bit for bit on every input.
//
// Supported pattern tokens:
//   - literal byte: matches itself (ASCII case-folded under CaseInsensitive)
//   - '*': matches any sequence of bytes, including the empty sequence
//   - '?': matches exactly one byte
//   - '[...]': character class, optionally negated with '!' or '^', with
//     three-byte ranges like a-z; an unclosed class is a literal '['
//
// Patterns and texts are opaque byte strings. No encoding is assumed; bytes
// >= 0x80 always compare literally.
package glob

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/segmentio/asm/ascii"

	"github.com/gpufind/gpufind/simd"
)

// Options is a bitfield of matching modifiers. The bit assignments are part
// of the GPU ABI: the field travels verbatim in the dispatch config uniform.
type Options uint32

const (
	// CaseInsensitive folds ASCII letters A-Z to a-z on both sides before
	// comparing. Bytes >= 0x80 are unaffected.
	CaseInsensitive Options = 1 << 0

	// MatchPath matches the pattern against the full path instead of the
	// final '/'-separated component.
	MatchPath Options = 1 << 1

	// Period requires a leading '.' in the matched segment to be matched by
	// an explicit '.' in the pattern. '*', '?' and character classes
	// (including [.]) do not match it.
	Period Options = 1 << 2
)

// MaxPatternLen bounds pattern size. The limit keeps the pattern buffer a
// single small GPU allocation and is enforced at compile time.
const MaxPatternLen = 1024

// ErrPatternTooLong is returned by Compile for patterns over MaxPatternLen.
var ErrPatternTooLong = errors.New("glob: pattern exceeds 1024 bytes")

// Pattern is a compiled glob pattern. It is immutable after Compile and safe
// for concurrent use by any number of matchers.
type Pattern struct {
	raw  []byte // pattern as supplied
	text []byte // matching form: raw, pre-folded under CaseInsensitive
	opts Options

	literal   bool // no '*', '?' or '[' anywhere
	wildcards int  // count of '*' and '?' tokens
	classes   int  // count of '[' bytes (upper bound on classes)
}

// Compile validates and preprocesses a glob pattern.
//
// Under CaseInsensitive the pattern is folded to lowercase once, here, so the
// per-byte work in the match loop folds only the text side.
func Compile(pattern string, opts Options) (*Pattern, error) {
	if len(pattern) > MaxPatternLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPatternTooLong, len(pattern))
	}

	p := &Pattern{
		raw:  []byte(pattern),
		opts: opts,
	}
	p.text = p.raw
	if opts&CaseInsensitive != 0 {
		p.text = simd.FoldLower(p.raw)
	}

	for _, c := range p.raw {
		switch c {
		case '*', '?':
			p.wildcards++
		case '[':
			p.classes++
		}
	}
	p.literal = p.wildcards == 0 && p.classes == 0

	return p, nil
}

// MustCompile is Compile for patterns known valid at build time.
func MustCompile(pattern string, opts Options) *Pattern {
	p, err := Compile(pattern, opts)
	if err != nil {
		panic("glob: Compile(" + pattern + "): " + err.Error())
	}
	return p
}

// String returns the original pattern text.
func (p *Pattern) String() string { return string(p.raw) }

// Options returns the matching options the pattern was compiled with.
func (p *Pattern) Options() Options { return p.opts }

// Bytes returns the matching form of the pattern (folded under
// CaseInsensitive). This is the byte string uploaded to the GPU.
func (p *Pattern) Bytes() []byte { return p.text }

// Source returns the pattern exactly as supplied, unfolded.
func (p *Pattern) Source() []byte { return p.raw }

// RequiredLiteral returns the longest run of literal bytes every match of
// the pattern must contain, or nil when no usable run exists. Character
// class contents and wildcard tokens break a run; an unterminated '[' is a
// literal and extends one. The returned bytes come from the matching form,
// so they are folded under CaseInsensitive.
func (p *Pattern) RequiredLiteral() []byte {
	var best []byte
	runStart := 0
	i := 0
	flush := func(end int) {
		if end-runStart > len(best) {
			best = p.text[runStart:end]
		}
	}
	for i < len(p.text) {
		switch p.text[i] {
		case '*', '?':
			flush(i)
			i++
			runStart = i
		case '[':
			if _, consumed := matchClass(p.text[i:], 0, false); consumed > 0 {
				flush(i)
				i += consumed
				runStart = i
			} else {
				i++
			}
		default:
			i++
		}
	}
	flush(i)
	return best
}

// IsLiteral reports whether the pattern contains no glob tokens.
func (p *Pattern) IsLiteral() bool { return p.literal }

// Complexity returns the wildcard and class counts used by the backend
// selector to score GPU benefit.
func (p *Pattern) Complexity() (wildcards, classes int) {
	return p.wildcards, p.classes
}

// Match reports whether path satisfies the pattern. Without MatchPath the
// pattern is applied to the basename; with it, to the whole path.
func (p *Pattern) Match(path []byte) bool {
	text := path
	if p.opts&MatchPath == 0 {
		text = simd.Basename(path)
	}
	return p.matchText(text)
}

// MatchString is Match for string paths.
func (p *Pattern) MatchString(path string) bool {
	return p.Match([]byte(path))
}

// matchText applies the pattern to an already-extracted segment.
func (p *Pattern) matchText(text []byte) bool {
	ci := p.opts&CaseInsensitive != 0

	// Wildcard-free patterns reduce to a plain comparison. The folded
	// compare runs through the vectorized ascii kernels.
	if p.literal {
		if p.opts&Period != 0 && leadingPeriodViolation(p.text, text) {
			return false
		}
		if ci {
			return ascii.EqualFold(p.text, text)
		}
		return bytes.Equal(p.text, text)
	}

	return matchBytes(p.text, text, ci, p.opts&Period != 0)
}

// Match is the reference scalar matcher: a pure function of (pattern, text,
// options) with no preprocessing. The GPU kernels and the SIMD-assisted path
// implement exactly these semantics.
func Match(pattern, text []byte, opts Options) bool {
	pat := pattern
	if opts&CaseInsensitive != 0 {
		pat = simd.FoldLower(pattern)
	}
	return matchBytes(pat, text, opts&CaseInsensitive != 0, opts&Period != 0)
}

// leadingPeriodViolation implements the Period rule: text starting with '.'
// requires pattern starting with a literal '.'.
func leadingPeriodViolation(pat, text []byte) bool {
	return len(text) > 0 && text[0] == '.' && (len(pat) == 0 || pat[0] != '.')
}

// matchBytes is the two-cursor backtracking loop with a single '*'
// checkpoint. pat must already be folded when ci is set.
func matchBytes(pat, text []byte, ci, period bool) bool {
	if period && leadingPeriodViolation(pat, text) {
		return false
	}

	pi, ni := 0, 0
	starPi, starNi := -1, -1

	for ni < len(text) {
		if pi < len(pat) {
			switch c := pat[pi]; c {
			case '*':
				starPi, starNi = pi, ni
				pi++
				continue
			case '?':
				pi++
				ni++
				continue
			case '[':
				ok, consumed := matchClass(pat[pi:], text[ni], ci)
				if consumed > 0 {
					if ok {
						pi += consumed
						ni++
						continue
					}
					// Valid class, byte not a member: backtrack.
				} else if charsEqual(c, text[ni], ci) {
					// Unterminated class: '[' is a literal.
					pi++
					ni++
					continue
				}
			default:
				if charsEqual(c, text[ni], ci) {
					pi++
					ni++
					continue
				}
			}
		}

		if starPi >= 0 {
			// Retry from the checkpoint with '*' consuming one more byte.
			pi = starPi + 1
			starNi++
			ni = starNi
			continue
		}
		return false
	}

	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat)
}

// charsEqual compares a pattern byte (pre-folded when ci) against a text byte.
func charsEqual(p, t byte, ci bool) bool {
	if ci {
		t = simd.FoldByte(t)
	}
	return p == t
}

// matchClass evaluates a character class at the start of pat against byte c.
//
// It returns whether c is a member and the number of pattern bytes the class
// occupies including both brackets. consumed == 0 means the class is
// unterminated and the caller must treat '[' as a literal.
//
// A '!' or '^' directly after '[' negates the class. ']' is a member only as
// the first entry after any negation sign. A range is the three-byte form
// lo-hi; a '-' first or last is a literal member. Membership compares folded
// bytes when ci is set (pat is already folded; range bounds fold with it).
func matchClass(pat []byte, c byte, ci bool) (matched bool, consumed int) {
	if ci {
		c = simd.FoldByte(c)
	}

	i := 1
	negate := false
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		negate = true
		i++
	}

	member := false
	first := true
	for i < len(pat) {
		if pat[i] == ']' && !first {
			return member != negate, i + 1
		}
		first = false

		// Three-byte range lo-hi, with '-' not the closing byte.
		if i+2 < len(pat) && pat[i+1] == '-' && pat[i+2] != ']' {
			lo, hi := pat[i], pat[i+2]
			if c >= lo && c <= hi {
				member = true
			}
			i += 3
			continue
		}

		if pat[i] == c {
			member = true
		}
		i++
	}

	return false, 0
}
