package model

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// Thread bundles the tables of a single sampled thread. A thread
// is immutable once built: the attribution engine and the selector
// share it by reference.
type Thread struct {
	Name          string
	Stacks        StackTable
	Frames        FrameTable
	Funcs         FuncTable
	NativeSymbols NativeSymbolTable
	Samples       SamplesTable
	// Sources holds string table indexes of source file names.
	Sources []StringIndex
	Strings []string

	fingerprintOnce sync.Once
	fingerprint     uint64
}

// Validate checks all cross-table references.
func (t *Thread) Validate() error {
	for i, s := range t.Sources {
		if s < 0 || int(s) >= len(t.Strings) {
			return ValidationError{errors.Errorf("source %d: name %d out of range [0, %d)", i, s, len(t.Strings))}
		}
	}
	if err := t.Funcs.Validate(len(t.Sources), len(t.Strings)); err != nil {
		return err
	}
	if err := t.Frames.Validate(&t.Funcs, &t.NativeSymbols); err != nil {
		return err
	}
	if err := t.Stacks.Validate(&t.Frames); err != nil {
		return err
	}
	return t.Samples.Validate(&t.Stacks)
}

func (t *Thread) String(i StringIndex) string { return t.Strings[i] }

func (t *Thread) SourceName(s SourceIndex) string {
	if s == NoSource {
		return ""
	}
	return t.Strings[t.Sources[s]]
}

func (t *Thread) FuncName(f FuncIndex) string { return t.Strings[t.Funcs.Name[f]] }

func (t *Thread) NativeSymbolName(s NativeSymbolIndex) string {
	if s == NoNativeSymbol {
		return ""
	}
	return t.Strings[t.NativeSymbols.Name[s]]
}

// FindSource returns the first source file whose name contains substr.
// An exact match takes precedence.
func (t *Thread) FindSource(substr string) (SourceIndex, error) {
	i, ok := findName(len(t.Sources), func(i int) string { return t.Strings[t.Sources[i]] }, substr)
	if !ok {
		return NoSource, NotFoundError{errors.Errorf("source file %q not found", substr)}
	}
	return SourceIndex(i), nil
}

// FindNativeSymbol returns the first native symbol whose name contains substr.
// An exact match takes precedence.
func (t *Thread) FindNativeSymbol(substr string) (NativeSymbolIndex, error) {
	i, ok := findName(t.NativeSymbols.Len(), func(i int) string { return t.Strings[t.NativeSymbols.Name[i]] }, substr)
	if !ok {
		return NoNativeSymbol, NotFoundError{errors.Errorf("native symbol %q not found", substr)}
	}
	return NativeSymbolIndex(i), nil
}

// FindFuncs returns all functions with the given name. Functions are
// distinct per source and line, so a name may resolve to several.
func (t *Thread) FindFuncs(name string) ([]FuncIndex, error) {
	var funcs []FuncIndex
	for i := 0; i < t.Funcs.Len(); i++ {
		if t.Strings[t.Funcs.Name[i]] == name {
			funcs = append(funcs, FuncIndex(i))
		}
	}
	if len(funcs) == 0 {
		return nil, NotFoundError{errors.Errorf("function %q not found", name)}
	}
	return funcs, nil
}

func findName(n int, name func(int) string, substr string) (int, bool) {
	partial := -1
	for i := 0; i < n; i++ {
		s := name(i)
		if s == substr {
			return i, true
		}
		if partial < 0 && strings.Contains(s, substr) {
			partial = i
		}
	}
	return partial, partial >= 0
}

// Fingerprint returns a content hash of the stack, frame, and function
// tables. Threads with equal fingerprints produce equal attribution info
// for the same target. The value is computed once.
func (t *Thread) Fingerprint() uint64 {
	t.fingerprintOnce.Do(func() { t.fingerprint = t.hash() })
	return t.fingerprint
}

func (t *Thread) hash() uint64 {
	h := xxhash.New()
	var b [8]byte
	put32 := func(v int32) {
		binary.LittleEndian.PutUint32(b[:4], uint32(v))
		_, _ = h.Write(b[:4])
	}
	put64 := func(v int64) {
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		_, _ = h.Write(b[:])
	}
	put32(int32(t.Stacks.Len()))
	for i := range t.Stacks.Frame {
		put32(int32(t.Stacks.Frame[i]))
		put32(int32(t.Stacks.Prefix[i]))
	}
	put32(int32(t.Frames.Len()))
	for i := range t.Frames.Func {
		put32(int32(t.Frames.Func[i]))
		put64(int64(t.Frames.Address[i]))
		put32(int32(t.Frames.Line[i]))
		put32(int32(t.Frames.NativeSymbol[i]))
	}
	put32(int32(t.Funcs.Len()))
	for i := range t.Funcs.Name {
		put32(int32(t.Funcs.Source[i]))
		put32(int32(t.Funcs.LineNumber[i]))
	}
	_, _ = h.WriteString(t.Name)
	return h.Sum64()
}
