package gpu

import (
	"runtime"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/gpufind/gpufind/glob"
	"github.com/gpufind/gpufind/regex"
)

// ScalarDriver is the sequential reference backend. It runs the pure scalar
// matcher byte by byte with no preprocessing, no vector helpers, and no
// worker pool; every other backend is validated against it.
type ScalarDriver struct{}

// NewScalarDriver returns the scalar CPU backend.
func NewScalarDriver() *ScalarDriver { return &ScalarDriver{} }

// Name implements Driver.
func (*ScalarDriver) Name() string { return "scalar" }

// Caps implements Driver. CPU drivers report no device.
func (*ScalarDriver) Caps() DeviceCaps { return DeviceCaps{DeviceName: "cpu"} }

// Close implements Driver.
func (*ScalarDriver) Close() error { return nil }

// MatchNames implements Driver.
func (d *ScalarDriver) MatchNames(b *Batch, p *glob.Pattern) (*DispatchResult, error) {
	res := &DispatchResult{Results: make([]MatchResult, b.Len())}
	opts := p.Options()
	src := p.Source()

	for i := 0; i < b.Len(); i++ {
		text := b.PathBytes(i)
		if opts&glob.MatchPath == 0 {
			text = scalarBasename(text)
		}
		res.Results[i] = MatchResult{NameIdx: uint32(i)}
		if glob.Match(src, text, opts) {
			res.Results[i].Matched = 1
			res.Count++
		}
	}
	return res, nil
}

// MatchRegex implements Driver.
func (d *ScalarDriver) MatchRegex(b *Batch, prog *regex.Program) (*DispatchResult, error) {
	res := &DispatchResult{Results: make([]MatchResult, b.Len())}
	m := regex.NewMachine(prog)

	for i := 0; i < b.Len(); i++ {
		res.Results[i] = MatchResult{NameIdx: uint32(i)}
		if m.FullMatch(b.PathBytes(i)) {
			res.Results[i].Matched = 1
			res.Count++
		}
	}
	return res, nil
}

// scalarBasename is the byte-at-a-time basename split; the SIMD driver uses
// the strided version instead.
func scalarBasename(path []byte) []byte {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// SimdDriver is the vector-assisted CPU backend: strided basename scans and
// pattern pre-folding from the simd package, the compiled pattern's literal
// fast path, an optional multi-pattern prefilter, and a conc worker pool
// splitting the batch across cores.
type SimdDriver struct {
	workers int
	pre     *Prefilter
}

// NewSimdDriver returns the SIMD CPU backend sized to the host.
func NewSimdDriver() *SimdDriver {
	return &SimdDriver{workers: runtime.GOMAXPROCS(0)}
}

// Name implements Driver.
func (*SimdDriver) Name() string { return "simd" }

// Caps implements Driver.
func (*SimdDriver) Caps() DeviceCaps { return DeviceCaps{DeviceName: "cpu"} }

// Close implements Driver.
func (*SimdDriver) Close() error { return nil }

// SetPrefilter installs a required-literal gate applied before full pattern
// evaluation. A nil prefilter clears the gate.
func (d *SimdDriver) SetPrefilter(pre *Prefilter) { d.pre = pre }

// MatchNames implements Driver.
func (d *SimdDriver) MatchNames(b *Batch, p *glob.Pattern) (*DispatchResult, error) {
	results := make([]MatchResult, b.Len())
	var count atomic.Uint32

	d.parallel(b.Len(), func(lo, hi int) {
		local := uint32(0)
		for i := lo; i < hi; i++ {
			results[i] = MatchResult{NameIdx: uint32(i)}
			path := b.PathBytes(i)
			if d.pre != nil && !d.pre.Candidate(path) {
				continue
			}
			if p.Match(path) {
				results[i].Matched = 1
				local++
			}
		}
		count.Add(local)
	})

	return &DispatchResult{Results: results, Count: count.Load()}, nil
}

// MatchRegex implements Driver.
func (d *SimdDriver) MatchRegex(b *Batch, prog *regex.Program) (*DispatchResult, error) {
	results := make([]MatchResult, b.Len())
	var count atomic.Uint32

	d.parallel(b.Len(), func(lo, hi int) {
		m := regex.NewMachine(prog)
		local := uint32(0)
		for i := lo; i < hi; i++ {
			results[i] = MatchResult{NameIdx: uint32(i)}
			if m.FullMatch(b.PathBytes(i)) {
				results[i].Matched = 1
				local++
			}
		}
		count.Add(local)
	})

	return &DispatchResult{Results: results, Count: count.Load()}, nil
}

// parallel splits [0, n) into contiguous shards, one per worker, and blocks
// until all complete. Shards are contiguous so each worker writes a disjoint
// region of the results slice.
func (d *SimdDriver) parallel(n int, fn func(lo, hi int)) {
	workers := d.workers
	if workers < 1 {
		workers = 1
	}
	if n < minParallelBatch || workers == 1 {
		fn(0, n)
		return
	}
	if workers > n {
		workers = n
	}

	p := pool.New().WithMaxGoroutines(workers)
	shard := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += shard {
		hi := lo + shard
		if hi > n {
			hi = n
		}
		lo, hi := lo, hi
		p.Go(func() { fn(lo, hi) })
	}
	p.Wait()
}

// minParallelBatch is the batch size below which goroutine fan-out costs
// more than it saves.
const minParallelBatch = 512
