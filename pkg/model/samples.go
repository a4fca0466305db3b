package model

import (
	"sort"

	"github.com/pkg/errors"
)

// SamplesTable holds one entry per time sample. Weight is optional:
// a nil Weight means every sample weighs 1. Time is optional too,
// and only required for range selection.
type SamplesTable struct {
	Stack  []StackIndex
	Weight []float64
	Time   []float64
}

func (t *SamplesTable) Len() int { return len(t.Stack) }

// WeightAt returns the weight of the i-th sample.
func (t *SamplesTable) WeightAt(i int) float64 {
	if t.Weight == nil {
		return 1
	}
	return t.Weight[i]
}

// TotalWeight returns the signed sum of all sample weights,
// samples without a stack included.
func (t *SamplesTable) TotalWeight() float64 {
	if t.Weight == nil {
		return float64(len(t.Stack))
	}
	var s float64
	for _, w := range t.Weight {
		s += w
	}
	return s
}

func (t *SamplesTable) Validate(stacks *StackTable) error {
	if t.Weight != nil && len(t.Weight) != len(t.Stack) {
		return ValidationError{errors.Errorf("samples columns mismatch: stack=%d weight=%d", len(t.Stack), len(t.Weight))}
	}
	if t.Time != nil && len(t.Time) != len(t.Stack) {
		return ValidationError{errors.Errorf("samples columns mismatch: stack=%d time=%d", len(t.Stack), len(t.Time))}
	}
	for i, s := range t.Stack {
		if s != NoStack && (s < 0 || int(s) >= stacks.Len()) {
			return ValidationError{errors.Errorf("sample %d: stack %d out of range [0, %d)", i, s, stacks.Len())}
		}
	}
	if t.Time != nil && !sort.Float64sAreSorted(t.Time) {
		return ValidationError{errors.New("sample times are not sorted")}
	}
	return nil
}

// Range returns the samples with start <= Time < end. The result
// shares the underlying columns with t. Samples must be sorted by
// time; without a Time column the whole table is returned.
func (t *SamplesTable) Range(start, end float64) *SamplesTable {
	if t.Time == nil {
		return t
	}
	lo := sort.SearchFloat64s(t.Time, start)
	hi := sort.SearchFloat64s(t.Time, end)
	if hi < lo {
		hi = lo
	}
	r := &SamplesTable{
		Stack: t.Stack[lo:hi:hi],
		Time:  t.Time[lo:hi:hi],
	}
	if t.Weight != nil {
		r.Weight = t.Weight[lo:hi:hi]
	}
	return r
}

// TimeRange returns the time of the first and the last sample.
func (t *SamplesTable) TimeRange() (start, end float64, ok bool) {
	if len(t.Time) == 0 {
		return 0, 0, false
	}
	return t.Time[0], t.Time[len(t.Time)-1], true
}
