package regex

import "github.com/gpufind/gpufind/internal/conv"

// Compile parses and lowers a pattern to NFA byte-code.
//
// When caseInsensitive is set the fold happens here, once: literal states
// store the folded byte and class bitmaps mirror every letter across case.
// Executors then fold only the input byte, never the program.
func Compile(pattern string, caseInsensitive bool) (*Program, error) {
	ast, groups, err := parse(pattern)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}

	c := &compiler{ci: caseInsensitive}

	var flags uint8
	if caseInsensitive {
		flags |= FlagCaseInsensitive
	}
	ast, hoisted := hoistAnchors(ast)
	flags |= hoisted

	f, err := c.emit(ast)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}

	match, err := c.alloc(State{Type: TypeMatch})
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}
	c.patch(f.out, match)

	return &Program{
		States:    c.states,
		Bitmaps:   c.bitmaps,
		Start:     f.start,
		NumGroups: uint8(groups),
		Flags:     flags,
	}, nil
}

// MustCompile is Compile for patterns known valid at build time.
func MustCompile(pattern string, caseInsensitive bool) *Program {
	p, err := Compile(pattern, caseInsensitive)
	if err != nil {
		panic(err.Error())
	}
	return p
}

// hoistAnchors strips a leading '^' and trailing '$' from the top-level
// concatenation into header flags. Anchors inside groups or alternations
// stay as assertion states.
func hoistAnchors(n *node) (*node, uint8) {
	var flags uint8

	if n.kind == nodeLineStart {
		return &node{kind: nodeEmpty}, FlagAnchoredStart
	}
	if n.kind == nodeLineEnd {
		return &node{kind: nodeEmpty}, FlagAnchoredEnd
	}
	if n.kind != nodeConcat {
		return n, 0
	}

	subs := n.subs
	if len(subs) > 0 && subs[0].kind == nodeLineStart {
		flags |= FlagAnchoredStart
		subs = subs[1:]
	}
	if len(subs) > 0 && subs[len(subs)-1].kind == nodeLineEnd {
		flags |= FlagAnchoredEnd
		subs = subs[:len(subs)-1]
	}

	switch len(subs) {
	case 0:
		return &node{kind: nodeEmpty}, flags
	case 1:
		return subs[0], flags
	}
	return &node{kind: nodeConcat, subs: subs}, flags
}

// patchRef identifies one dangling out-edge: a state index plus which of its
// two edges needs the target filled in.
type patchRef struct {
	state uint16
	out2  bool
}

// frag is a partially built NFA: an entry state and the list of dangling
// edges to be patched to whatever follows.
type frag struct {
	start uint16
	out   []patchRef
}

type compiler struct {
	states  []State
	bitmaps []uint32
	ci      bool
}

// alloc appends a state, enforcing the MaxStates budget.
func (c *compiler) alloc(s State) (uint16, error) {
	if len(c.states) >= MaxStates {
		return 0, ErrTooManyStates
	}
	id := conv.IntToUint16(len(c.states))
	c.states = append(c.states, s)
	return id, nil
}

// patch points every dangling edge in refs at target.
func (c *compiler) patch(refs []patchRef, target uint16) {
	for _, r := range refs {
		if r.out2 {
			c.states[r.state].Out2 = target
		} else {
			c.states[r.state].Out = target
		}
	}
}

// emit lowers one AST node to a fragment.
func (c *compiler) emit(n *node) (frag, error) {
	switch n.kind {
	case nodeEmpty:
		// A split with both edges dangling to the same successor.
		id, err := c.alloc(State{Type: TypeSplit})
		if err != nil {
			return frag{}, err
		}
		return frag{start: id, out: []patchRef{{id, false}, {id, true}}}, nil

	case nodeLiteral:
		lit := n.lit
		if c.ci {
			lit = foldByte(lit)
		}
		id, err := c.alloc(State{Type: TypeLiteral, Literal: lit})
		if err != nil {
			return frag{}, err
		}
		return frag{start: id, out: []patchRef{{id, false}}}, nil

	case nodeDot:
		id, err := c.alloc(State{Type: TypeDot})
		if err != nil {
			return frag{}, err
		}
		return frag{start: id, out: []patchRef{{id, false}}}, nil

	case nodeClass:
		off := c.allocBitmap(n)
		var flags uint8
		if n.negated {
			flags |= FlagNegated
		}
		id, err := c.alloc(State{Type: TypeCharClass, Flags: flags, BitmapOffset: off})
		if err != nil {
			return frag{}, err
		}
		return frag{start: id, out: []patchRef{{id, false}}}, nil

	case nodeLineStart, nodeLineEnd, nodeWordBoundary, nodeNotWordBoundary:
		var t StateType
		switch n.kind {
		case nodeLineStart:
			t = TypeLineStart
		case nodeLineEnd:
			t = TypeLineEnd
		case nodeWordBoundary:
			t = TypeWordBoundary
		default:
			t = TypeNotWordBoundary
		}
		id, err := c.alloc(State{Type: t})
		if err != nil {
			return frag{}, err
		}
		return frag{start: id, out: []patchRef{{id, false}}}, nil

	case nodeConcat:
		first, err := c.emit(n.subs[0])
		if err != nil {
			return frag{}, err
		}
		out := first.out
		for _, sub := range n.subs[1:] {
			next, err := c.emit(sub)
			if err != nil {
				return frag{}, err
			}
			c.patch(out, next.start)
			out = next.out
		}
		return frag{start: first.start, out: out}, nil

	case nodeAlternate:
		// A chain of splits, one per '|'.
		result, err := c.emit(n.subs[0])
		if err != nil {
			return frag{}, err
		}
		for _, sub := range n.subs[1:] {
			right, err := c.emit(sub)
			if err != nil {
				return frag{}, err
			}
			id, err := c.alloc(State{Type: TypeSplit, Out: result.start, Out2: right.start})
			if err != nil {
				return frag{}, err
			}
			result = frag{start: id, out: append(result.out, right.out...)}
		}
		return result, nil

	case nodeStar:
		sub, err := c.emit(n.subs[0])
		if err != nil {
			return frag{}, err
		}
		id, err := c.alloc(State{Type: TypeSplit, Out: sub.start})
		if err != nil {
			return frag{}, err
		}
		c.patch(sub.out, id)
		return frag{start: id, out: []patchRef{{id, true}}}, nil

	case nodePlus:
		sub, err := c.emit(n.subs[0])
		if err != nil {
			return frag{}, err
		}
		id, err := c.alloc(State{Type: TypeSplit, Out: sub.start})
		if err != nil {
			return frag{}, err
		}
		c.patch(sub.out, id)
		return frag{start: sub.start, out: []patchRef{{id, true}}}, nil

	case nodeQuest:
		sub, err := c.emit(n.subs[0])
		if err != nil {
			return frag{}, err
		}
		id, err := c.alloc(State{Type: TypeSplit, Out: sub.start})
		if err != nil {
			return frag{}, err
		}
		return frag{start: id, out: append(sub.out, patchRef{id, true})}, nil

	case nodeGroup:
		open, err := c.alloc(State{Type: TypeGroupStart, GroupIdx: n.groupIdx})
		if err != nil {
			return frag{}, err
		}
		sub, err := c.emit(n.subs[0])
		if err != nil {
			return frag{}, err
		}
		c.states[open].Out = sub.start
		cls, err := c.alloc(State{Type: TypeGroupEnd, GroupIdx: n.groupIdx})
		if err != nil {
			return frag{}, err
		}
		c.patch(sub.out, cls)
		return frag{start: open, out: []patchRef{{cls, false}}}, nil
	}

	// Unreachable: the parser produces no other kinds.
	return frag{}, ErrBadRepeat
}

// allocBitmap builds the 256-bit membership bitmap for a class node and
// appends it to the pool, returning its byte offset.
//
// Negation is NOT applied to the bitmap; it travels in the state flags so the
// kernel test stays a single load plus XOR. Under case-insensitive
// compilation every letter bit is mirrored across case.
func (c *compiler) allocBitmap(n *node) uint32 {
	var bits [bitmapWords]uint32
	set := func(b byte) {
		bits[b>>5] |= 1 << (uint32(b) & 31)
		if c.ci {
			switch {
			case b >= 'A' && b <= 'Z':
				lo := b | 0x20
				bits[lo>>5] |= 1 << (uint32(lo) & 31)
			case b >= 'a' && b <= 'z':
				up := b &^ 0x20
				bits[up>>5] |= 1 << (uint32(up) & 31)
			}
		}
	}
	for _, r := range n.ranges {
		for b := int(r.lo); b <= int(r.hi); b++ {
			set(byte(b))
		}
	}

	off := uint32(len(c.bitmaps) * 4)
	c.bitmaps = append(c.bitmaps, bits[:]...)
	return off
}
