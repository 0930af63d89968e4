// Package cli parses the find-style command grammar and owns the process
// surfaces around matching: stdin path ingestion and output formatting.
//
// The grammar is position-sensitive the way find is (roots first, then
// predicates), with single-dash multi-letter operators, so parsing is a
// hand-written scan rather than a flag library: -name is one token, not
// four bundled short flags.
package cli

import (
	"fmt"
	"strconv"

	"github.com/gpufind/gpufind/gpu"
	"github.com/gpufind/gpufind/internal/walk"
)

// UsageError is a bad invocation: unknown flag, malformed argument, or a
// violated limit. The process prints it to stderr and exits 1.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// PatternKind distinguishes the pattern predicates.
type PatternKind int

const (
	// KindName matches the glob against the basename.
	KindName PatternKind = iota

	// KindPath matches the glob against the full path.
	KindPath

	// KindRegex matches the regex against the entire full path.
	KindRegex
)

// PatternSpec is one pattern predicate before compilation.
type PatternSpec struct {
	Expr string
	Kind PatternKind
	Fold bool // case-insensitive variant
}

// Command is a parsed invocation.
type Command struct {
	Force   gpu.Force
	Verbose bool

	Roots []string
	Stdin bool // "-" root: read paths from stdin

	Patterns []PatternSpec
	Not      bool

	Prune string

	MaxDepth int // -1 unset
	MinDepth int
	Type     byte
	Size     *walk.SizePredicate
	MTime    *walk.TimePredicate
	ATime    *walk.TimePredicate
	CTime    *walk.TimePredicate
	Empty    bool

	Print0 bool
	Count  bool
}

// Parse parses the argument list (without the program name).
func Parse(args []string) (*Command, error) {
	cmd := &Command{MaxDepth: -1, MinDepth: -1}

	i := 0
	next := func(op string) (string, error) {
		i++
		if i >= len(args) {
			return "", usagef("%s requires an argument", op)
		}
		return args[i], nil
	}

	inPredicates := false
	for ; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--auto":
			cmd.Force = gpu.ForceAuto
		case "--gpu":
			cmd.Force = gpu.ForceGPU
		case "--cpu":
			cmd.Force = gpu.ForceCPU
		case "--metal":
			cmd.Force = gpu.ForceMetal
		case "--vulkan":
			cmd.Force = gpu.ForceVulkan
		case "-v", "--verbose":
			cmd.Verbose = true

		case "-name", "-iname", "-path", "-ipath", "-regex", "-iregex":
			inPredicates = true
			expr, err := next(arg)
			if err != nil {
				return nil, err
			}
			spec, err := patternSpec(arg, expr)
			if err != nil {
				return nil, err
			}
			if len(cmd.Patterns) > 0 {
				return nil, usagef("%s: only one primary pattern allowed (use -o for alternatives)", arg)
			}
			cmd.Patterns = append(cmd.Patterns, spec)

		case "-o":
			inPredicates = true
			op, err := next("-o")
			if err != nil {
				return nil, err
			}
			if op != "-name" && op != "-iname" {
				return nil, usagef("-o must be followed by -name or -iname")
			}
			expr, err := next(op)
			if err != nil {
				return nil, err
			}
			if len(cmd.Patterns) == 0 {
				return nil, usagef("-o requires a preceding pattern")
			}
			if cmd.Patterns[0].Kind == KindRegex {
				return nil, usagef("-o cannot extend a regex pattern")
			}
			spec, _ := patternSpec(op, expr)
			cmd.Patterns = append(cmd.Patterns, spec)

		case "-not", "!":
			inPredicates = true
			cmd.Not = true

		case "-type":
			inPredicates = true
			v, err := next("-type")
			if err != nil {
				return nil, err
			}
			if len(v) != 1 || !validType(v[0]) {
				return nil, usagef("invalid -type %q: want one of f d l b c p s", v)
			}
			cmd.Type = v[0]

		case "-maxdepth", "-mindepth":
			inPredicates = true
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, usagef("invalid %s %q", arg, v)
			}
			if arg == "-maxdepth" {
				cmd.MaxDepth = n
			} else {
				cmd.MinDepth = n
			}

		case "-size":
			inPredicates = true
			v, err := next("-size")
			if err != nil {
				return nil, err
			}
			p, err := ParseSize(v)
			if err != nil {
				return nil, err
			}
			cmd.Size = p

		case "-mtime", "-atime", "-ctime":
			inPredicates = true
			v, err := next(arg)
			if err != nil {
				return nil, err
			}
			p, err := ParseTime(arg, v)
			if err != nil {
				return nil, err
			}
			switch arg {
			case "-mtime":
				cmd.MTime = p
			case "-atime":
				cmd.ATime = p
			default:
				cmd.CTime = p
			}

		case "-prune":
			inPredicates = true
			v, err := next("-prune")
			if err != nil {
				return nil, err
			}
			cmd.Prune = v

		case "-empty":
			inPredicates = true
			cmd.Empty = true

		case "-print0":
			inPredicates = true
			cmd.Print0 = true

		case "-count":
			inPredicates = true
			cmd.Count = true

		case "-":
			if inPredicates {
				return nil, usagef("paths must precede predicates")
			}
			cmd.Stdin = true

		default:
			if len(arg) > 0 && arg[0] == '-' {
				return nil, usagef("unknown option %q", arg)
			}
			if inPredicates {
				return nil, usagef("paths must precede predicates: %q", arg)
			}
			cmd.Roots = append(cmd.Roots, arg)
		}
	}

	if len(cmd.Roots) == 0 && !cmd.Stdin {
		cmd.Roots = []string{"."}
	}
	return cmd, nil
}

// patternSpec maps an operator name onto a PatternSpec.
func patternSpec(op, expr string) (PatternSpec, error) {
	switch op {
	case "-name":
		return PatternSpec{Expr: expr, Kind: KindName}, nil
	case "-iname":
		return PatternSpec{Expr: expr, Kind: KindName, Fold: true}, nil
	case "-path":
		return PatternSpec{Expr: expr, Kind: KindPath}, nil
	case "-ipath":
		return PatternSpec{Expr: expr, Kind: KindPath, Fold: true}, nil
	case "-regex":
		return PatternSpec{Expr: expr, Kind: KindRegex}, nil
	case "-iregex":
		return PatternSpec{Expr: expr, Kind: KindRegex, Fold: true}, nil
	}
	return PatternSpec{}, usagef("unknown pattern operator %q", op)
}

func validType(t byte) bool {
	switch t {
	case 'f', 'd', 'l', 'b', 'c', 'p', 's':
		return true
	}
	return false
}

// ParseSize parses a -size argument: [+-]N[cwbkKMG], no suffix meaning
// 512-byte blocks.
func ParseSize(s string) (*walk.SizePredicate, error) {
	orig := s
	p := &walk.SizePredicate{Unit: 512}

	if len(s) > 0 {
		switch s[0] {
		case '+':
			p.Cmp = walk.CmpGreater
			s = s[1:]
		case '-':
			p.Cmp = walk.CmpLess
			s = s[1:]
		}
	}
	if len(s) > 0 {
		switch s[len(s)-1] {
		case 'c':
			p.Unit = 1
			s = s[:len(s)-1]
		case 'w':
			p.Unit = 2
			s = s[:len(s)-1]
		case 'b':
			p.Unit = 512
			s = s[:len(s)-1]
		case 'k', 'K':
			p.Unit = 1024
			s = s[:len(s)-1]
		case 'M':
			p.Unit = 1 << 20
			s = s[:len(s)-1]
		case 'G':
			p.Unit = 1 << 30
			s = s[:len(s)-1]
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil, usagef("invalid -size %q", orig)
	}
	p.N = n
	return p, nil
}

// ParseTime parses a -mtime/-atime/-ctime argument: [+-]N days.
func ParseTime(op, s string) (*walk.TimePredicate, error) {
	orig := s
	p := &walk.TimePredicate{}

	switch op {
	case "-mtime":
		p.Kind = walk.TimeModified
	case "-atime":
		p.Kind = walk.TimeAccessed
	case "-ctime":
		p.Kind = walk.TimeChanged
	}

	if len(s) > 0 {
		switch s[0] {
		case '+':
			p.Cmp = walk.CmpGreater
			s = s[1:]
		case '-':
			p.Cmp = walk.CmpLess
			s = s[1:]
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil, usagef("invalid %s %q", op, orig)
	}
	p.N = n
	return p, nil
}
