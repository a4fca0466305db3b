// Package callnode derives the call tree of a stack table: a call node
// is a unique path of functions from the root, so stacks that differ
// only in frame details (line, address) share a call node.
package callnode

import (
	"github.com/dolthub/swiss"

	"github.com/grafana/stackscope/pkg/model"
)

type Index int32

const None Index = model.Sentinel

// Info is the call node table of a stack table. Like the stack table
// it is topologically ordered: Prefix[c] is None or less than c.
type Info struct {
	Prefix          []Index
	Func            []model.FuncIndex
	Depth           []int32
	StackToCallNode []Index

	children *swiss.Map[uint64, Index]
}

func childKey(prefix Index, fn model.FuncIndex) uint64 {
	return uint64(uint32(prefix))<<32 | uint64(uint32(fn))
}

// Build computes the call node of every stack in a single pass.
func Build(stacks *model.StackTable, frames *model.FrameTable) *Info {
	n := stacks.Len()
	x := &Info{
		StackToCallNode: make([]Index, n),
		children:        swiss.NewMap[uint64, Index](uint32(n/2 + 1)),
	}
	for s := 0; s < n; s++ {
		prefix := None
		if p := stacks.Prefix[s]; p != model.NoStack {
			prefix = x.StackToCallNode[p]
		}
		fn := frames.Func[stacks.Frame[s]]
		k := childKey(prefix, fn)
		c, ok := x.children.Get(k)
		if !ok {
			c = Index(len(x.Func))
			var depth int32
			if prefix != None {
				depth = x.Depth[prefix] + 1
			}
			x.Prefix = append(x.Prefix, prefix)
			x.Func = append(x.Func, fn)
			x.Depth = append(x.Depth, depth)
			x.children.Put(k, c)
		}
		x.StackToCallNode[s] = c
	}
	return x
}

func (x *Info) Len() int { return len(x.Func) }

// Child returns the call node for fn called from prefix.
func (x *Info) Child(prefix Index, fn model.FuncIndex) (Index, bool) {
	return x.children.Get(childKey(prefix, fn))
}

// FindPath resolves a function path, root first.
func (x *Info) FindPath(path []model.FuncIndex) (Index, bool) {
	if len(path) == 0 {
		return None, false
	}
	c := None
	for _, fn := range path {
		var ok bool
		if c, ok = x.Child(c, fn); !ok {
			return None, false
		}
	}
	return c, true
}

// FindPaths resolves a path whose elements may each name several
// functions, root first. It returns every call node that matches.
func (x *Info) FindPaths(path [][]model.FuncIndex) []Index {
	if len(path) == 0 {
		return nil
	}
	nodes := []Index{None}
	for _, candidates := range path {
		var next []Index
		for _, c := range nodes {
			for _, fn := range candidates {
				if child, ok := x.Child(c, fn); ok {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		nodes = next
	}
	return nodes
}

// Path returns the function path of the call node, root first.
func (x *Info) Path(c Index) []model.FuncIndex {
	if c == None {
		return nil
	}
	path := make([]model.FuncIndex, x.Depth[c]+1)
	for i := len(path) - 1; c != None; i-- {
		path[i] = x.Func[c]
		c = x.Prefix[c]
	}
	return path
}

// FramePerStack maps every stack that passes through the call node to the
// frame the call node has in that stack. Stacks outside the call node's
// subtree map to model.NoFrame. The frame may differ between stacks: the
// same function can be entered at different lines or addresses.
func (x *Info) FramePerStack(stacks *model.StackTable, c Index) []model.FrameIndex {
	out := make([]model.FrameIndex, stacks.Len())
	for s := range out {
		switch p := stacks.Prefix[s]; {
		case x.StackToCallNode[s] == c:
			out[s] = stacks.Frame[s]
		case p != model.NoStack:
			out[s] = out[p]
		default:
			out[s] = model.NoFrame
		}
	}
	return out
}

// SelfFramePerStack is like FramePerStack, but only stacks that belong
// to the call node itself are mapped; its descendants are not.
func (x *Info) SelfFramePerStack(stacks *model.StackTable, c Index) []model.FrameIndex {
	out := make([]model.FrameIndex, stacks.Len())
	for s := range out {
		if x.StackToCallNode[s] == c {
			out[s] = stacks.Frame[s]
		} else {
			out[s] = model.NoFrame
		}
	}
	return out
}
