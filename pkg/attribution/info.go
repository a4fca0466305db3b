package attribution

import (
	"github.com/grafana/stackscope/pkg/model"
)

// Info holds the attribution of every stack for one target.
// It is immutable and can be shared by reference.
type Info[K comparable] struct {
	self    []K
	hasSelf []bool
	total   []*KeySet[K]
	sets    int
}

// BuildInfo performs a single forward pass over the stack table.
// The table must be topologically ordered (see model.StackTable);
// this is not checked unless built with the stackscope_debug tag.
//
// For every stack, the self key is the key of the stack's own frame
// if the frame belongs to target. The total keys are the self key
// together with the total keys of the prefix. A stack reuses the set
// of its prefix whenever it does not introduce a new key, therefore
// only stacks that add a key not seen higher up allocate.
func BuildInfo[T, K comparable](stacks *model.StackTable, p Partition[T, K], target T) *Info[K] {
	n := stacks.Len()
	x := &Info[K]{
		self:    make([]K, n),
		hasSelf: make([]bool, n),
		total:   make([]*KeySet[K], n),
	}
	for s := 0; s < n; s++ {
		var parent *KeySet[K]
		if prefix := stacks.Prefix[s]; prefix != model.NoStack {
			if debug {
				assertTopological(s, prefix)
			}
			parent = x.total[prefix]
		}
		k, ok := key(p, stacks.Frame[s], target)
		if !ok {
			x.total[s] = parent
			continue
		}
		x.self[s] = k
		x.hasSelf[s] = true
		switch {
		case parent == nil:
			x.total[s] = newKeySet(k)
			x.sets++
		case parent.Has(k):
			// The key is already totalled by an ancestor (recursion).
			x.total[s] = parent
		default:
			x.total[s] = parent.with(k)
			x.sets++
		}
	}
	return x
}

// Len returns the number of stacks covered.
func (x *Info[K]) Len() int { return len(x.total) }

// SelfKey returns the key contributed by the stack's own frame.
func (x *Info[K]) SelfKey(s model.StackIndex) (K, bool) {
	return x.self[s], x.hasSelf[s]
}

// TotalKeys returns the keys of the stack and all its ancestors
// that belong to the target. The result is nil if there are none.
func (x *Info[K]) TotalKeys(s model.StackIndex) *KeySet[K] {
	return x.total[s]
}

// Sets returns the number of distinct key sets allocated.
func (x *Info[K]) Sets() int { return x.sets }
