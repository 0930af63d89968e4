package gpu

import (
	"errors"

	"github.com/gpufind/gpufind/glob"
	"github.com/gpufind/gpufind/regex"
)

// Driver errors.
var (
	// ErrUnavailable indicates the backend cannot run on this host: the
	// platform lacks the API, the build lacks cgo, or no device was found.
	ErrUnavailable = errors.New("gpu: backend unavailable")

	// ErrDispatchFailed indicates a submitted dispatch did not complete.
	// The orchestrator retries the batch on the CPU.
	ErrDispatchFailed = errors.New("gpu: dispatch failed")
)

// WorkgroupSize is the thread-group width of every compute dispatch. The
// grid is padded up to a multiple of it and each thread bounds-checks its
// global index against num_names.
const WorkgroupSize = 256

// MatchResult is one per-path result slot. Every input index gets a slot
// whether it matched or not, so slot position is deterministic and the host
// compacts without guessing.
type MatchResult struct {
	NameIdx uint32
	Matched uint32
}

// DispatchResult is the readback of one dispatch: the per-index slots plus
// the final value of the device-side atomic match counter.
type DispatchResult struct {
	Results []MatchResult
	Count   uint32
}

// DeviceCaps describes a probed compute device. CPU drivers report only
// DeviceName "cpu"; every other field is zero.
type DeviceCaps struct {
	DeviceName         string
	MaxThreadsPerGroup uint32
	MaxBufferSize      uint64
	DeviceLocalMemory  uint64
	Unified            bool // unified host/device memory
}

// Tier buckets a device for the selector.
type Tier int

const (
	// TierNone is a CPU driver or an unprobed device.
	TierNone Tier = iota

	// TierStandard is a discrete or low-end GPU.
	TierStandard

	// TierHigh is unified memory with >= 1024 threads per group, the Apple
	// Silicon profile: dispatch overhead is low enough to win on much
	// smaller batches.
	TierHigh
)

// Tier classifies the device.
func (c DeviceCaps) Tier() Tier {
	switch {
	case c.MaxThreadsPerGroup == 0:
		return TierNone
	case c.Unified && c.MaxThreadsPerGroup >= 1024:
		return TierHigh
	default:
		return TierStandard
	}
}

// Driver runs the matching kernels on one backend. Implementations own their
// device, queue, and pipelines; buffers are allocated per dispatch and
// released before MatchNames/MatchRegex returns, on success and on every
// error path. Drivers are safe for sequential reuse and must be closed.
type Driver interface {
	// Name identifies the backend ("scalar", "simd", "metal", "vulkan").
	Name() string

	// Caps reports the probed device capabilities.
	Caps() DeviceCaps

	// MatchNames evaluates a glob pattern over the batch and returns one
	// result slot per input index, in input order.
	MatchNames(b *Batch, p *glob.Pattern) (*DispatchResult, error)

	// MatchRegex evaluates a compiled regex over every full path in the
	// batch. Matching spans the entire path (find -regex semantics).
	MatchRegex(b *Batch, prog *regex.Program) (*DispatchResult, error)

	// Close releases the device objects. The driver is unusable afterwards.
	Close() error
}
