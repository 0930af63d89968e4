package cli

import (
	"fmt"
	"io"
)

// Emitter writes matched paths: one per line, NUL-separated under -print0,
// or a single total under -count. Output is unbuffered: each path is written
// directly, followed by a separate write of its separator byte.
type Emitter struct {
	w     io.Writer
	nul   bool
	count bool
	n     uint64
}

// NewEmitter creates an emitter for the chosen output mode.
func NewEmitter(w io.Writer, print0, count bool) *Emitter {
	return &Emitter{w: w, nul: print0, count: count}
}

// Emit outputs one matched path (or just counts it under -count).
func (e *Emitter) Emit(path string) {
	e.n++
	if e.count {
		return
	}
	sep := byte('\n')
	if e.nul {
		sep = 0
	}
	io.WriteString(e.w, path)
	e.w.Write([]byte{sep})
}

// Close finishes the stream: under -count it prints the total.
func (e *Emitter) Close() {
	if e.count {
		fmt.Fprintf(e.w, "%d\n", e.n)
	}
}

// Matched returns the number of emitted paths.
func (e *Emitter) Matched() uint64 { return e.n }
