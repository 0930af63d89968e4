package regex

import "math/bits"

// Machine executes a compiled Program over one input at a time using the
// same algorithm as the GPU kernels: two bit-sets of active states, an
// epsilon closure before every byte, then a consuming step. There is no
// recursion and no backtracking, so runtime is O(len(text) * MaxStates/64)
// in the worst case regardless of pattern shape.
//
// A Machine is cheap (a few hundred bytes) but not safe for concurrent use;
// each worker owns one and resets it per input.
type Machine struct {
	prog    *Program
	current stateSet
	next    stateSet
	stack   []uint16
}

// stateSet is a 256-bit set of active state IDs.
type stateSet [MaxStates / 64]uint64

func (s *stateSet) add(id uint16) {
	s[id>>6] |= 1 << (uint64(id) & 63)
}

func (s *stateSet) has(id uint16) bool {
	return s[id>>6]&(1<<(uint64(id)&63)) != 0
}

func (s *stateSet) clear() {
	*s = stateSet{}
}

func (s *stateSet) empty() bool {
	return s[0]|s[1]|s[2]|s[3] == 0
}

// NewMachine creates an executor for prog.
func NewMachine(prog *Program) *Machine {
	return &Machine{
		prog:  prog,
		stack: make([]uint16, 0, len(prog.States)),
	}
}

// FullMatch reports whether the program matches the entire input: the match
// must begin at position 0 and reach the accepting state exactly at end of
// input. This is the matching mode of the find-style -regex predicate and of
// the regex_match_names kernels, independent of explicit anchors.
func (m *Machine) FullMatch(text []byte) bool {
	m.current.clear()
	m.current.add(m.prog.Start)
	m.closure(&m.current, text, 0)

	for i := 0; i < len(text); i++ {
		if m.current.empty() {
			return false
		}
		m.step(text, i)
		m.current, m.next = m.next, m.current
		m.closure(&m.current, text, i+1)
	}

	return m.hasMatch(&m.current)
}

// Match reports whether the program matches anywhere in text, honoring the
// hoisted anchor flags: without FlagAnchoredStart a fresh start thread is
// seeded at every position, and without FlagAnchoredEnd a match may end
// before end of input.
func (m *Machine) Match(text []byte) bool {
	anchoredStart := m.prog.Flags&FlagAnchoredStart != 0
	anchoredEnd := m.prog.Flags&FlagAnchoredEnd != 0

	m.current.clear()
	for i := 0; i <= len(text); i++ {
		if i == 0 || !anchoredStart {
			m.current.add(m.prog.Start)
		}
		m.closure(&m.current, text, i)
		if m.hasMatch(&m.current) && (!anchoredEnd || i == len(text)) {
			return true
		}
		if i == len(text) {
			break
		}
		if m.current.empty() && anchoredStart {
			return false
		}
		m.step(text, i)
		m.current, m.next = m.next, m.current
	}
	return false
}

// step advances every consuming state in current through text[i] into next.
func (m *Machine) step(text []byte, i int) {
	m.next.clear()

	c := text[i]
	if m.prog.Flags&FlagCaseInsensitive != 0 {
		c = foldByte(c)
	}

	for w := 0; w < len(m.current); w++ {
		active := m.current[w]
		for active != 0 {
			id := uint16(w<<6) + uint16(bits.TrailingZeros64(active))
			active &= active - 1

			st := &m.prog.States[id]
			switch st.Type {
			case TypeLiteral:
				if c == st.Literal {
					m.next.add(st.Out)
				}
			case TypeCharClass:
				if m.prog.classMember(st.BitmapOffset, st.Flags, c) {
					m.next.add(st.Out)
				}
			case TypeDot:
				if c != '\n' {
					m.next.add(st.Out)
				}
			case TypeAny:
				m.next.add(st.Out)
			}
		}
	}
}

// closure expands epsilon transitions in set, evaluating zero-width
// assertions at byte position pos. The expansion is iterative with an
// explicit stack; cycles (e.g. from (a*)*) terminate because a state is
// pushed only on its first insertion.
func (m *Machine) closure(set *stateSet, text []byte, pos int) {
	stack := m.stack[:0]
	for w := 0; w < len(set); w++ {
		active := set[w]
		for active != 0 {
			stack = append(stack, uint16(w<<6)+uint16(bits.TrailingZeros64(active)))
			active &= active - 1
		}
	}

	push := func(id uint16) {
		if !set.has(id) {
			set.add(id)
			stack = append(stack, id)
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		st := &m.prog.States[id]
		switch st.Type {
		case TypeSplit:
			push(st.Out)
			push(st.Out2)
		case TypeGroupStart, TypeGroupEnd:
			// Group boundaries are epsilon; unmatched groups never affect
			// success.
			push(st.Out)
		case TypeLineStart:
			if pos == 0 {
				push(st.Out)
			}
		case TypeLineEnd:
			if pos == len(text) {
				push(st.Out)
			}
		case TypeWordBoundary:
			if wordBoundary(text, pos) {
				push(st.Out)
			}
		case TypeNotWordBoundary:
			if !wordBoundary(text, pos) {
				push(st.Out)
			}
		}
	}
	m.stack = stack[:0]
}

// hasMatch reports whether any accepting state is active.
func (m *Machine) hasMatch(set *stateSet) bool {
	for w := 0; w < len(set); w++ {
		active := set[w]
		for active != 0 {
			id := uint16(w<<6) + uint16(bits.TrailingZeros64(active))
			active &= active - 1
			if m.prog.States[id].Type == TypeMatch {
				return true
			}
		}
	}
	return false
}

// wordBoundary tests whether word-ness changes across position pos. The
// bytes outside the string are non-word.
func wordBoundary(text []byte, pos int) bool {
	left := pos > 0 && isWordByte(text[pos-1])
	right := pos < len(text) && isWordByte(text[pos])
	return left != right
}

// FullMatch is a convenience that allocates a Machine per call.
func (p *Program) FullMatch(text []byte) bool {
	return NewMachine(p).FullMatch(text)
}

// Match is a convenience that allocates a Machine per call.
func (p *Program) Match(text []byte) bool {
	return NewMachine(p).Match(text)
}
