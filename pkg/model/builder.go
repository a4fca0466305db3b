package model

import (
	"github.com/dolthub/swiss"
)

// ThreadBuilder assembles a Thread table by table. Strings, sources,
// functions, native symbols, and frames are interned; stacks are
// deduplicated by (prefix, frame), which keeps the stack table
// topologically ordered: a stack can only be added after its prefix.
type ThreadBuilder struct {
	t *Thread

	strings map[string]StringIndex
	sources map[StringIndex]SourceIndex
	funcs   map[funcKey]FuncIndex
	symbols map[symbolKey]NativeSymbolIndex
	frames  map[frameKey]FrameIndex
	stacks  *swiss.Map[uint64, StackIndex]
}

type funcKey struct {
	name   StringIndex
	source SourceIndex
	line   LineNumber
	isJS   bool
}

type symbolKey struct {
	name    StringIndex
	address Address
}

type frameKey struct {
	fn      FuncIndex
	address Address
	line    LineNumber
	symbol  NativeSymbolIndex
}

func NewThreadBuilder(name string) *ThreadBuilder {
	return &ThreadBuilder{
		t:       &Thread{Name: name},
		strings: make(map[string]StringIndex),
		sources: make(map[StringIndex]SourceIndex),
		funcs:   make(map[funcKey]FuncIndex),
		symbols: make(map[symbolKey]NativeSymbolIndex),
		frames:  make(map[frameKey]FrameIndex),
		stacks:  swiss.NewMap[uint64, StackIndex](1 << 10),
	}
}

func (b *ThreadBuilder) String(s string) StringIndex {
	i, ok := b.strings[s]
	if !ok {
		i = StringIndex(len(b.t.Strings))
		b.t.Strings = append(b.t.Strings, s)
		b.strings[s] = i
	}
	return i
}

// Source interns a source file name. An empty name yields NoSource.
func (b *ThreadBuilder) Source(name string) SourceIndex {
	if name == "" {
		return NoSource
	}
	n := b.String(name)
	i, ok := b.sources[n]
	if !ok {
		i = SourceIndex(len(b.t.Sources))
		b.t.Sources = append(b.t.Sources, n)
		b.sources[n] = i
	}
	return i
}

func (b *ThreadBuilder) Func(name string, source SourceIndex, line LineNumber, isJS bool) FuncIndex {
	k := funcKey{name: b.String(name), source: source, line: line, isJS: isJS}
	i, ok := b.funcs[k]
	if !ok {
		t := &b.t.Funcs
		i = FuncIndex(t.Len())
		t.Name = append(t.Name, k.name)
		t.Source = append(t.Source, source)
		t.LineNumber = append(t.LineNumber, line)
		t.IsJS = append(t.IsJS, isJS)
		b.funcs[k] = i
	}
	return i
}

func (b *ThreadBuilder) NativeSymbol(name string, address Address) NativeSymbolIndex {
	k := symbolKey{name: b.String(name), address: address}
	i, ok := b.symbols[k]
	if !ok {
		t := &b.t.NativeSymbols
		i = NativeSymbolIndex(t.Len())
		t.Name = append(t.Name, k.name)
		t.Address = append(t.Address, address)
		b.symbols[k] = i
	}
	return i
}

func (b *ThreadBuilder) Frame(fn FuncIndex, address Address, line LineNumber, symbol NativeSymbolIndex) FrameIndex {
	k := frameKey{fn: fn, address: address, line: line, symbol: symbol}
	i, ok := b.frames[k]
	if !ok {
		t := &b.t.Frames
		i = FrameIndex(t.Len())
		t.Func = append(t.Func, fn)
		t.Address = append(t.Address, address)
		t.Line = append(t.Line, line)
		t.NativeSymbol = append(t.NativeSymbol, symbol)
		b.frames[k] = i
	}
	return i
}

// Stack returns the stack node for the frame called from prefix.
func (b *ThreadBuilder) Stack(prefix StackIndex, frame FrameIndex) StackIndex {
	k := uint64(uint32(prefix))<<32 | uint64(uint32(frame))
	i, ok := b.stacks.Get(k)
	if !ok {
		t := &b.t.Stacks
		i = StackIndex(t.Len())
		t.Frame = append(t.Frame, frame)
		t.Prefix = append(t.Prefix, prefix)
		b.stacks.Put(k, i)
	}
	return i
}

// StackFromRoot returns the stack for the given frames, root first.
func (b *ThreadBuilder) StackFromRoot(frames ...FrameIndex) StackIndex {
	s := NoStack
	for _, f := range frames {
		s = b.Stack(s, f)
	}
	return s
}

// Sample appends a sample. A nil Weight column is materialized
// as soon as a weight other than 1 is added.
func (b *ThreadBuilder) Sample(stack StackIndex, weight, time float64) {
	t := &b.t.Samples
	if t.Weight == nil && weight != 1 {
		t.Weight = make([]float64, len(t.Stack), cap(t.Stack)+1)
		for i := range t.Weight {
			t.Weight[i] = 1
		}
	}
	t.Stack = append(t.Stack, stack)
	t.Time = append(t.Time, time)
	if t.Weight != nil {
		t.Weight = append(t.Weight, weight)
	}
}

// Thread returns the built thread. The builder must not be used afterwards.
func (b *ThreadBuilder) Thread() *Thread {
	t := b.t
	b.t = nil
	return t
}
