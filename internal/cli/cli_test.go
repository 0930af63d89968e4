package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpufind/gpufind/gpu"
	"github.com/gpufind/gpufind/internal/walk"
)

func TestParse_Basics(t *testing.T) {
	cmd, err := Parse([]string{"/srv", "/opt", "-name", "*.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv", "/opt"}, cmd.Roots)
	require.Len(t, cmd.Patterns, 1)
	assert.Equal(t, PatternSpec{Expr: "*.txt", Kind: KindName}, cmd.Patterns[0])
	assert.Equal(t, -1, cmd.MaxDepth)
}

func TestParse_DefaultRoot(t *testing.T) {
	cmd, err := Parse([]string{"-name", "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"."}, cmd.Roots)
}

func TestParse_PatternKinds(t *testing.T) {
	tests := []struct {
		op   string
		want PatternSpec
	}{
		{"-name", PatternSpec{Expr: "p", Kind: KindName}},
		{"-iname", PatternSpec{Expr: "p", Kind: KindName, Fold: true}},
		{"-path", PatternSpec{Expr: "p", Kind: KindPath}},
		{"-ipath", PatternSpec{Expr: "p", Kind: KindPath, Fold: true}},
		{"-regex", PatternSpec{Expr: "p", Kind: KindRegex}},
		{"-iregex", PatternSpec{Expr: "p", Kind: KindRegex, Fold: true}},
	}
	for _, tt := range tests {
		cmd, err := Parse([]string{tt.op, "p"})
		require.NoError(t, err, tt.op)
		require.Len(t, cmd.Patterns, 1)
		assert.Equal(t, tt.want, cmd.Patterns[0], tt.op)
	}
}

func TestParse_Disjunction(t *testing.T) {
	cmd, err := Parse([]string{"-name", "*.go", "-o", "-iname", "*.md"})
	require.NoError(t, err)
	require.Len(t, cmd.Patterns, 2)
	assert.False(t, cmd.Patterns[0].Fold)
	assert.True(t, cmd.Patterns[1].Fold)

	_, err = Parse([]string{"-name", "a", "-o", "-type", "f"})
	assert.Error(t, err, "-o only extends with -name/-iname")

	_, err = Parse([]string{"-o", "-name", "a"})
	assert.Error(t, err, "-o needs a preceding pattern")

	_, err = Parse([]string{"-regex", "a.*", "-o", "-name", "b"})
	assert.Error(t, err, "-o cannot extend a regex")
}

func TestParse_BackendFlags(t *testing.T) {
	tests := []struct {
		flag string
		want gpu.Force
	}{
		{"--auto", gpu.ForceAuto},
		{"--gpu", gpu.ForceGPU},
		{"--cpu", gpu.ForceCPU},
		{"--metal", gpu.ForceMetal},
		{"--vulkan", gpu.ForceVulkan},
	}
	for _, tt := range tests {
		cmd, err := Parse([]string{tt.flag})
		require.NoError(t, err)
		assert.Equal(t, tt.want, cmd.Force, tt.flag)
	}
}

func TestParse_Filters(t *testing.T) {
	cmd, err := Parse([]string{
		"/data",
		"-name", "*.bin",
		"-type", "f",
		"-maxdepth", "3", "-mindepth", "1",
		"-size", "+10M",
		"-mtime", "-7",
		"-prune", ".git",
		"-empty", "-print0", "-count", "-not",
	})
	require.NoError(t, err)

	assert.Equal(t, byte('f'), cmd.Type)
	assert.Equal(t, 3, cmd.MaxDepth)
	assert.Equal(t, 1, cmd.MinDepth)
	require.NotNil(t, cmd.Size)
	assert.Equal(t, walk.CmpGreater, cmd.Size.Cmp)
	assert.Equal(t, int64(10), cmd.Size.N)
	assert.Equal(t, int64(1<<20), cmd.Size.Unit)
	require.NotNil(t, cmd.MTime)
	assert.Equal(t, walk.CmpLess, cmd.MTime.Cmp)
	assert.Equal(t, ".git", cmd.Prune)
	assert.True(t, cmd.Empty)
	assert.True(t, cmd.Print0)
	assert.True(t, cmd.Count)
	assert.True(t, cmd.Not)
}

func TestParse_Errors(t *testing.T) {
	bad := [][]string{
		{"-name"},                   // missing argument
		{"-type", "x"},              // invalid type letter
		{"-type", "ff"},             // multi-letter type
		{"-maxdepth", "-1"},         // negative depth
		{"-maxdepth", "many"},       // non-numeric depth
		{"-size", "+abcM"},          // non-numeric size
		{"-mtime", "soon"},          // non-numeric time
		{"-frobnicate"},             // unknown option
		{"-name", "a", "/late"},     // path after predicates
		{"-name", "a", "-name", "b"}, // second primary
	}
	for _, args := range bad {
		_, err := Parse(args)
		require.Error(t, err, "%v", args)
		var ue *UsageError
		assert.ErrorAs(t, err, &ue, "%v", args)
	}
}

func TestParseSize_SuffixTable(t *testing.T) {
	tests := []struct {
		in   string
		cmp  walk.Cmp
		n    int64
		unit int64
	}{
		{"100c", walk.CmpExact, 100, 1},
		{"4w", walk.CmpExact, 4, 2},
		{"2b", walk.CmpExact, 2, 512},
		{"2", walk.CmpExact, 2, 512},
		{"+5k", walk.CmpGreater, 5, 1024},
		{"+5K", walk.CmpGreater, 5, 1024},
		{"-3M", walk.CmpLess, 3, 1 << 20},
		{"1G", walk.CmpExact, 1, 1 << 30},
	}
	for _, tt := range tests {
		p, err := ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.cmp, p.Cmp, tt.in)
		assert.Equal(t, tt.n, p.N, tt.in)
		assert.Equal(t, tt.unit, p.Unit, tt.in)
	}
}

func TestParse_Stdin(t *testing.T) {
	cmd, err := Parse([]string{"-", "-name", "*.txt"})
	require.NoError(t, err)
	assert.True(t, cmd.Stdin)
	assert.Empty(t, cmd.Roots)
}

func TestReadPaths(t *testing.T) {
	paths, err := ReadPaths(strings.NewReader("a/b.txt\n./c\td e\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b.txt", "./c", "d", "e"}, paths)

	_, err = ReadPaths(strings.NewReader(strings.Repeat("x", MaxStdinBytes+1)))
	require.Error(t, err)

	paths, err = ReadPaths(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestEmitter(t *testing.T) {
	t.Run("newline", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewEmitter(&buf, false, false)
		e.Emit("a.txt")
		e.Emit("b.txt")
		e.Close()
		assert.Equal(t, "a.txt\nb.txt\n", buf.String())
	})

	t.Run("print0", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewEmitter(&buf, true, false)
		e.Emit("a.txt")
		e.Emit("b c")
		e.Close()
		assert.Equal(t, "a.txt\x00b c\x00", buf.String())
	})

	t.Run("count", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewEmitter(&buf, false, true)
		e.Emit("a")
		e.Emit("b")
		e.Emit("c")
		e.Close()
		assert.Equal(t, "3\n", buf.String())
		assert.Equal(t, uint64(3), e.Matched())
	})
}
