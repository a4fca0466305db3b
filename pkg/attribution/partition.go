// Package attribution computes self and total time per partition key
// (source line, instruction address, ...) for a sampled stack table.
//
// The work is split in two tiers. BuildInfo walks the stack table once
// per target and records, for every stack, the key of its own frame and
// the set of keys of the stack and all its ancestors. ComputeTimings then
// folds any number of sample selections over the same Info without
// touching the stack table again.
//
// All functions are pure: inputs are never modified and the results
// may be shared between goroutines.
package attribution

import (
	"github.com/grafana/stackscope/pkg/model"
)

// Partition binds the engine to one partition dimension. T identifies
// the entity a frame belongs to (a source file, a native symbol), and K
// is the partition key extracted from the frame (a line, an address).
//
// Implementations translate their own absence conventions (sentinel
// values, fallbacks) into the boolean result.
type Partition[T comparable, K comparable] interface {
	// Owner returns the entity the frame belongs to. Frames
	// without an owner never match any target.
	Owner(frame model.FrameIndex) (T, bool)
	// Key returns the partition key of the frame.
	Key(frame model.FrameIndex) (K, bool)
}

// key resolves the partition key of the frame if it belongs to target.
func key[T, K comparable](p Partition[T, K], frame model.FrameIndex, target T) (k K, ok bool) {
	owner, ok := p.Owner(frame)
	if !ok || owner != target {
		return k, false
	}
	return p.Key(frame)
}
