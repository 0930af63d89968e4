package gpu

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/rs/zerolog"

	"github.com/gpufind/gpufind/glob"
	"github.com/gpufind/gpufind/regex"
)

// dispatchState tracks one batch through its lifecycle. Transitions are
// strictly forward; any failure reverts the batch to the CPU retry path
// before a single result is emitted.
type dispatchState int

const (
	stateBuilding dispatchState = iota
	statePacked
	stateEncoded
	stateSubmitted
	stateComplete
	stateReadback
	stateDone
)

func (s dispatchState) String() string {
	switch s {
	case stateBuilding:
		return "BUILDING"
	case statePacked:
		return "PACKED"
	case stateEncoded:
		return "ENCODED"
	case stateSubmitted:
		return "SUBMITTED"
	case stateComplete:
		return "COMPLETE"
	case stateReadback:
		return "READBACK"
	default:
		return "DONE"
	}
}

// Query is the compiled match predicate for one run: either a set of glob
// patterns combined as a disjunction, or a single regex.
type Query struct {
	Globs []*glob.Pattern
	Regex *regex.Program

	// Negate inverts the predicate after evaluation.
	Negate bool
}

// workload summarizes the query for the selector.
func (q *Query) workload(numPaths int) Workload {
	w := Workload{NumPaths: numPaths, Regex: q.Regex != nil}
	for _, p := range q.Globs {
		wc, cc := p.Complexity()
		w.Wildcards += wc
		w.Classes += cc
	}
	return w
}

// Orchestrator owns the drivers and runs queries over path streams in
// batches of up to MaxBatchEntries paths or MaxBatchBytes packed bytes.
// Within a batch, result index i corresponds to input path i; across
// batches, indices are rebased by the running total, so global match indices
// follow input order exactly.
type Orchestrator struct {
	sel *Selector
	log zerolog.Logger

	drivers map[Strategy]Driver
}

// NewOrchestrator creates an orchestrator. Probe must run before the first
// query.
func NewOrchestrator(log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		log:     log,
		drivers: make(map[Strategy]Driver),
	}
}

// Probe opens the platform's native GPU driver (unless the force directive
// rules it out), builds the selector from the probed capabilities, and keeps
// the driver cached for later dispatches. GPU init failure is not an error:
// it logs at debug level and the run degrades to the CPU strategies.
func (o *Orchestrator) Probe(force Force, simdCapable bool) *Selector {
	gpuAvailable := false
	tier := TierNone

	if force != ForceCPU {
		native := nativeGPU()
		if d, err := o.driver(native); err != nil {
			o.log.Debug().Err(err).Msg("GPU initialization failed, falling back to CPU")
		} else {
			gpuAvailable = true
			tier = d.Caps().Tier()
			o.log.Debug().
				Str("backend", native.String()).
				Str("device", d.Caps().DeviceName).
				Int("tier", int(tier)).
				Msg("GPU backend available")
		}
	}

	o.sel = NewSelector(force, simdCapable, gpuAvailable, tier)
	return o.sel
}

// Close releases every driver the orchestrator opened.
func (o *Orchestrator) Close() error {
	var first error
	for _, d := range o.drivers {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	o.drivers = nil
	return first
}

// Run evaluates the query over paths and returns the set of matching global
// path indices. The bitmap iterates in ascending order, which is input
// order.
func (o *Orchestrator) Run(paths []string, q *Query) (*roaring.Bitmap, error) {
	matched := roaring.New()
	pre := NewPrefilter(q.Globs)

	batch := NewBatch()
	base := uint32(0)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := o.dispatchBatch(batch, q, pre, base, matched); err != nil {
			return err
		}
		base += uint32(batch.Len())
		batch.Reset()
		return nil
	}

	for _, path := range paths {
		err := batch.Add(path)
		if err == ErrBatchFull {
			if err := flush(); err != nil {
				return nil, err
			}
			err = batch.Add(path)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if q.Negate {
		total := base
		matched.Flip(0, uint64(total))
	}
	return matched, nil
}

// dispatchBatch runs the query over one packed batch and merges matches into
// acc at global indices base+i. A failed GPU dispatch is retried once on the
// CPU; nothing is merged from the failed attempt, so no index can be counted
// twice.
func (o *Orchestrator) dispatchBatch(b *Batch, q *Query, pre *Prefilter, base uint32, acc *roaring.Bitmap) error {
	strategy := o.sel.Select(q.workload(b.Len()))

	o.log.Debug().
		Str("backend", strategy.String()).
		Int("paths", b.Len()).
		Uint32("base", base).
		Msg("dispatching batch")

	results, err := o.runOn(strategy, b, q, pre)
	if err != nil && strategy.IsGPU() {
		o.log.Warn().Err(err).
			Str("backend", strategy.String()).
			Msg("dispatch failed, retrying batch on cpu")
		results, err = o.runOn(o.sel.cpu(), b, q, pre)
	}
	if err != nil {
		return err
	}

	for i, r := range results {
		if r.Matched != 0 {
			acc.Add(base + uint32(i))
		}
	}
	return nil
}

// runOn evaluates the query on one backend and returns the per-index match
// vector with the disjunction already applied.
func (o *Orchestrator) runOn(strategy Strategy, b *Batch, q *Query, pre *Prefilter) ([]MatchResult, error) {
	drv, err := o.driver(strategy)
	if err != nil {
		return nil, err
	}

	if sd, ok := drv.(*SimdDriver); ok {
		sd.SetPrefilter(pre)
		defer sd.SetPrefilter(nil)
	}

	state := statePacked
	defer func() {
		o.log.Trace().Stringer("state", state).Msg("batch finished")
	}()

	if q.Regex != nil {
		res, err := drv.MatchRegex(b, q.Regex)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", drv.Name(), err)
		}
		state = stateDone
		return clampResults(res, b.Len()), nil
	}

	// Glob disjunction: one dispatch per pattern, OR-ed per index.
	var merged []MatchResult
	for _, p := range q.Globs {
		res, err := drv.MatchNames(b, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", drv.Name(), err)
		}
		rs := clampResults(res, b.Len())
		if merged == nil {
			merged = rs
			continue
		}
		for i := range merged {
			merged[i].Matched |= rs[i].Matched
		}
	}
	state = stateDone
	return merged, nil
}

// clampResults truncates a driver's result vector to the input size. A
// misbehaving kernel can at worst under-report; it cannot push results past
// the batch.
func clampResults(res *DispatchResult, n int) []MatchResult {
	rs := res.Results
	if len(rs) > n {
		rs = rs[:n]
	}
	return rs
}

// driver lazily opens and caches the driver for a strategy.
func (o *Orchestrator) driver(strategy Strategy) (Driver, error) {
	if d, ok := o.drivers[strategy]; ok {
		return d, nil
	}

	var (
		d   Driver
		err error
	)
	switch strategy {
	case StrategyScalar:
		d = NewScalarDriver()
	case StrategySimd:
		d = NewSimdDriver()
	case StrategyMetal:
		d, err = NewMetalDriver(o.log)
	case StrategyVulkan:
		d, err = NewVulkanDriver(o.log)
	default:
		err = ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("open %s driver: %w", strategy, err)
	}

	o.drivers[strategy] = d
	return d, nil
}
