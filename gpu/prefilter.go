package gpu

import (
	"github.com/coregx/ahocorasick"

	"github.com/gpufind/gpufind/glob"
)

// minPrefilterLiteral is the shortest required literal worth gating on.
// Shorter literals hit nearly every path and the automaton scan becomes
// pure overhead.
const minPrefilterLiteral = 3

// Prefilter is a multi-pattern required-literal gate for the CPU matching
// backends. It holds an Aho-Corasick automaton over the required literal of
// every query pattern: a path containing none of the literals cannot match
// any pattern and skips the full glob evaluation entirely.
//
// The gate is sound, never complete: Candidate == false implies no pattern
// matches, Candidate == true decides nothing.
type Prefilter struct {
	auto *ahocorasick.Automaton
}

// NewPrefilter builds a prefilter for a pattern set, or returns nil when the
// set cannot be gated: a pattern with no usable literal would make the gate
// unsound to skip on, and case-insensitive patterns would need a folded scan
// of every path, which costs what the gate saves.
func NewPrefilter(pats []*glob.Pattern) *Prefilter {
	if len(pats) == 0 {
		return nil
	}

	builder := ahocorasick.NewBuilder()
	for _, p := range pats {
		if p.Options()&glob.CaseInsensitive != 0 {
			return nil
		}
		lit := p.RequiredLiteral()
		if len(lit) < minPrefilterLiteral {
			return nil
		}
		builder.AddPattern(lit)
	}

	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &Prefilter{auto: auto}
}

// Candidate reports whether path can possibly match any gated pattern.
//
// The scan runs over the full path even for basename matching: a literal
// required in the basename is contained in the path, so the gate stays
// sound.
func (p *Prefilter) Candidate(path []byte) bool {
	return p.auto.IsMatch(path)
}
