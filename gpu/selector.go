package gpu

import "runtime"

// Strategy identifies an execution backend.
//
// The selector chooses between:
//   - StrategyScalar: reference CPU loop (hosts without SIMD, validation)
//   - StrategySimd: vector-assisted parallel CPU (default below GPU sizes)
//   - StrategyMetal: native GPU on darwin
//   - StrategyVulkan: native GPU elsewhere
//
// Selection is automatic per batch unless the user forces a backend.
type Strategy int

const (
	// StrategyScalar uses the sequential reference matcher.
	// Selected for:
	//   - Every CPU choice on hosts without wide vector units
	StrategyScalar Strategy = iota

	// StrategySimd uses the vector-assisted CPU matcher across a worker
	// pool.
	// Selected for:
	//   - Anything under the GPU threshold on vector-capable hosts
	//   - Every fallback and retry path
	StrategySimd

	// StrategyMetal dispatches to the Metal driver.
	// Selected for:
	//   - Large batches on darwin with a probed Metal device
	//   - Preferred over Vulkan when both are somehow present
	StrategyMetal

	// StrategyVulkan dispatches to the Vulkan driver.
	// Selected for:
	//   - Large batches on hosts with a Vulkan compute queue
	StrategyVulkan
)

// String returns the backend name used in logs and flags.
func (s Strategy) String() string {
	switch s {
	case StrategyScalar:
		return "scalar"
	case StrategySimd:
		return "simd"
	case StrategyMetal:
		return "metal"
	case StrategyVulkan:
		return "vulkan"
	default:
		return "unknown"
	}
}

// IsGPU reports whether the strategy is a native GPU backend.
func (s Strategy) IsGPU() bool {
	return s == StrategyMetal || s == StrategyVulkan
}

// Force is the user's backend directive from the CLI.
type Force int

const (
	// ForceAuto lets the selector decide per batch.
	ForceAuto Force = iota

	// ForceCPU restricts selection to the CPU strategies.
	ForceCPU

	// ForceGPU demands the native GPU; falls back to the CPU strategy when
	// no device is available (the probe failure is logged at debug level).
	ForceGPU

	// ForceMetal and ForceVulkan pin one driver.
	ForceMetal
	ForceVulkan
)

// Workload describes one pending dispatch for scoring.
type Workload struct {
	// NumPaths is the batch size.
	NumPaths int

	// Wildcards and Classes describe glob pattern complexity. Both raise
	// the GPU score: backtracking and class scans are expensive per CPU
	// byte but nearly free against the GPU's fixed dispatch overhead.
	Wildcards int
	Classes   int

	// Regex marks a regex dispatch, scored like a maximally complex glob.
	Regex bool
}

// gpuThreshold is the effective-size floor for GPU dispatch: below roughly
// this many simple paths, buffer setup and readback dwarf the matching work.
const gpuThreshold = 1024

// score computes the effective workload size: the path count scaled by
// pattern complexity.
func (w Workload) score() int {
	factor := 1 + w.Classes
	if w.Wildcards > 1 {
		factor += w.Wildcards - 1
	}
	if w.Regex {
		factor += 4
	}
	return w.NumPaths * factor
}

// Selector chooses a Strategy per workload from the probed backends.
type Selector struct {
	force     Force
	simdAble  bool
	hasGPU    bool
	gpu       Strategy // StrategyMetal or StrategyVulkan when hasGPU
	gpuTier   Tier
	available map[Strategy]bool
}

// NewSelector builds a selector from the set of available strategies and the
// native GPU tier. The CPU strategies are always available.
func NewSelector(force Force, simdCapable bool, gpuAvailable bool, gpuTier Tier) *Selector {
	s := &Selector{
		force:    force,
		simdAble: simdCapable,
		gpuTier:  gpuTier,
		available: map[Strategy]bool{
			StrategyScalar: true,
			StrategySimd:   true,
		},
	}
	if gpuAvailable {
		s.hasGPU = true
		s.gpu = nativeGPU()
		s.available[s.gpu] = true
	}
	return s
}

// nativeGPU returns the platform's native GPU strategy.
func nativeGPU() Strategy {
	if runtime.GOOS == "darwin" {
		return StrategyMetal
	}
	return StrategyVulkan
}

// Available reports whether a strategy can run on this host.
func (s *Selector) Available(st Strategy) bool { return s.available[st] }

// Select picks the backend for one workload. Forced-backend directives
// bypass scoring entirely.
func (s *Selector) Select(w Workload) Strategy {
	switch s.force {
	case ForceCPU:
		return s.cpu()
	case ForceMetal:
		return StrategyMetal
	case ForceVulkan:
		return StrategyVulkan
	case ForceGPU:
		if s.hasGPU {
			return s.gpu
		}
		return s.cpu()
	}

	if !s.hasGPU || w.NumPaths < gpuThreshold {
		return s.cpu()
	}

	threshold := gpuThreshold
	if s.gpuTier != TierHigh {
		// Discrete devices pay transfer costs; demand more work.
		threshold *= 8
	}
	if w.score() >= threshold {
		return s.gpu
	}
	return s.cpu()
}

// cpu returns the best CPU strategy.
func (s *Selector) cpu() Strategy {
	if s.simdAble {
		return StrategySimd
	}
	return StrategyScalar
}
