package model

import (
	"github.com/pkg/errors"
)

type (
	StackIndex        int32
	FrameIndex        int32
	FuncIndex         int32
	SourceIndex       int32
	NativeSymbolIndex int32
	StringIndex       int32
	LineNumber        int32
	Address           int64
)

// Sentinel marks an absent value in any index or value column:
// a root stack prefix, a frame without an address, a function
// without a source file, a sample without a stack, etc.
const Sentinel = -1

const (
	NoStack        StackIndex        = Sentinel
	NoFrame        FrameIndex        = Sentinel
	NoSource       SourceIndex       = Sentinel
	NoNativeSymbol NativeSymbolIndex = Sentinel
	NoLine         LineNumber        = Sentinel
	NoAddress      Address           = Sentinel
)

// StackTable is a parent-pointer tree of stack nodes. The table is
// topologically ordered: Prefix[s] is either NoStack or less than s.
type StackTable struct {
	Frame  []FrameIndex
	Prefix []StackIndex
}

func (t *StackTable) Len() int { return len(t.Frame) }

// Validate checks the topological order and, if frames is not nil,
// that every stack refers to an existing frame.
func (t *StackTable) Validate(frames *FrameTable) error {
	if len(t.Frame) != len(t.Prefix) {
		return ValidationError{errors.Errorf("stack table columns mismatch: frame=%d prefix=%d", len(t.Frame), len(t.Prefix))}
	}
	for s, p := range t.Prefix {
		if p != NoStack && (p < 0 || int(p) >= s) {
			return ValidationError{errors.Errorf("stack %d: prefix %d breaks topological order", s, p)}
		}
		if frames != nil {
			if f := t.Frame[s]; f < 0 || int(f) >= frames.Len() {
				return ValidationError{errors.Errorf("stack %d: frame %d out of range [0, %d)", s, f, frames.Len())}
			}
		}
	}
	return nil
}

// Depth returns the number of ancestors of the stack.
func (t *StackTable) Depth(s StackIndex) int {
	var d int
	for p := t.Prefix[s]; p != NoStack; p = t.Prefix[p] {
		d++
	}
	return d
}

type FrameTable struct {
	Func         []FuncIndex
	Address      []Address
	Line         []LineNumber
	NativeSymbol []NativeSymbolIndex
}

func (t *FrameTable) Len() int { return len(t.Func) }

func (t *FrameTable) Validate(funcs *FuncTable, symbols *NativeSymbolTable) error {
	n := len(t.Func)
	if len(t.Address) != n || len(t.Line) != n || len(t.NativeSymbol) != n {
		return ValidationError{errors.Errorf("frame table columns mismatch: func=%d address=%d line=%d native_symbol=%d",
			n, len(t.Address), len(t.Line), len(t.NativeSymbol))}
	}
	for i := 0; i < n; i++ {
		if f := t.Func[i]; f < 0 || int(f) >= funcs.Len() {
			return ValidationError{errors.Errorf("frame %d: func %d out of range [0, %d)", i, f, funcs.Len())}
		}
		if s := t.NativeSymbol[i]; s != NoNativeSymbol && (s < 0 || int(s) >= symbols.Len()) {
			return ValidationError{errors.Errorf("frame %d: native symbol %d out of range [0, %d)", i, s, symbols.Len())}
		}
	}
	return nil
}

type FuncTable struct {
	Name       []StringIndex
	Source     []SourceIndex
	LineNumber []LineNumber
	IsJS       []bool
}

func (t *FuncTable) Len() int { return len(t.Name) }

func (t *FuncTable) Validate(sources, strings int) error {
	n := len(t.Name)
	if len(t.Source) != n || len(t.LineNumber) != n || len(t.IsJS) != n {
		return ValidationError{errors.Errorf("func table columns mismatch: name=%d source=%d line=%d is_js=%d",
			n, len(t.Source), len(t.LineNumber), len(t.IsJS))}
	}
	for i := 0; i < n; i++ {
		if s := t.Name[i]; s < 0 || int(s) >= strings {
			return ValidationError{errors.Errorf("func %d: name %d out of range [0, %d)", i, s, strings)}
		}
		if s := t.Source[i]; s != NoSource && (s < 0 || int(s) >= sources) {
			return ValidationError{errors.Errorf("func %d: source %d out of range [0, %d)", i, s, sources)}
		}
	}
	return nil
}

type NativeSymbolTable struct {
	Name    []StringIndex
	Address []Address
}

func (t *NativeSymbolTable) Len() int { return len(t.Name) }
