package gpu

import (
	"errors"
	"fmt"

	"github.com/gpufind/gpufind/internal/conv"
)

// Batch size limits. A batch is the unit of GPU work; the orchestrator splits
// larger inputs and rebases result indices.
const (
	// MaxBatchEntries caps the number of paths per dispatch.
	MaxBatchEntries = 1 << 16

	// MaxBatchBytes caps the packed names_data size per dispatch.
	MaxBatchBytes = 64 << 20

	// MaxPathLen caps a single path. Longer paths are a usage error well
	// before they reach a buffer.
	MaxPathLen = 4096
)

// Batch packing errors.
var (
	// ErrBatchFull indicates the batch hit an entry or byte limit.
	ErrBatchFull = errors.New("gpu: batch full")

	// ErrPathTooLong indicates a path over MaxPathLen bytes.
	ErrPathTooLong = errors.New("gpu: path exceeds 4096 bytes")
)

// Batch accumulates paths and maintains the flattened GPU-side
// representation: a delimiter-free concatenation of all path bytes plus
// per-path offset and length arrays.
//
// Invariant: offsets[i] + lengths[i] <= len(names) for every i. Paths are
// opaque byte sequences; any byte value is permitted and order is preserved.
type Batch struct {
	paths      []string
	names      []byte
	offsets    []uint32
	lengths    []uint32
	maxNameLen uint32
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add appends one path. It returns ErrBatchFull when the batch cannot take
// the path without exceeding a limit, and ErrPathTooLong for oversized paths;
// in both cases the batch is unchanged.
func (b *Batch) Add(path string) error {
	if len(path) > MaxPathLen {
		return fmt.Errorf("%w: %d bytes", ErrPathTooLong, len(path))
	}
	if len(b.paths) >= MaxBatchEntries || len(b.names)+len(path) > MaxBatchBytes {
		return ErrBatchFull
	}

	b.offsets = append(b.offsets, conv.IntToUint32(len(b.names)))
	b.lengths = append(b.lengths, conv.IntToUint32(len(path)))
	b.names = append(b.names, path...)
	b.paths = append(b.paths, path)
	if uint32(len(path)) > b.maxNameLen {
		b.maxNameLen = uint32(len(path))
	}
	return nil
}

// Len returns the number of paths in the batch.
func (b *Batch) Len() int { return len(b.paths) }

// Reset empties the batch, retaining allocated capacity for reuse.
func (b *Batch) Reset() {
	b.paths = b.paths[:0]
	b.names = b.names[:0]
	b.offsets = b.offsets[:0]
	b.lengths = b.lengths[:0]
	b.maxNameLen = 0
}

// Path returns path i.
func (b *Batch) Path(i int) string { return b.paths[i] }

// PathBytes returns path i as a zero-copy slice of the packed names data.
func (b *Batch) PathBytes(i int) []byte {
	off, n := b.offsets[i], b.lengths[i]
	return b.names[off : off+n]
}

// NamesData returns the packed path bytes.
func (b *Batch) NamesData() []byte { return b.names }

// Offsets returns the per-path start offsets into NamesData.
func (b *Batch) Offsets() []uint32 { return b.offsets }

// Lengths returns the per-path byte lengths.
func (b *Batch) Lengths() []uint32 { return b.lengths }

// MaxNameLen returns the longest path length in the batch.
func (b *Batch) MaxNameLen() uint32 { return b.maxNameLen }
