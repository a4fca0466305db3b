package attribution

import (
	"github.com/grafana/stackscope/pkg/model"
)

// Timings holds the total and self weight per partition key.
// The maps can't be modified through a Timings value; the zero
// value is the empty result.
type Timings[K comparable] struct {
	total map[K]float64
	self  map[K]float64
}

// EmptyTimings returns the result for "nothing selected". It never allocates.
func EmptyTimings[K comparable]() Timings[K] { return Timings[K]{} }

// ComputeTimings sums sample weights per key. A nil info yields the
// empty timings. The stack table is not accessed: the call is linear
// in the number of samples times the size of the sampled key sets.
func ComputeTimings[K comparable](info *Info[K], samples *model.SamplesTable) Timings[K] {
	if info == nil {
		return EmptyTimings[K]()
	}
	t := Timings[K]{
		total: make(map[K]float64),
		self:  make(map[K]float64),
	}
	for i, s := range samples.Stack {
		if s == model.NoStack {
			continue
		}
		w := samples.WeightAt(i)
		if set := info.total[s]; set != nil {
			for _, k := range set.keys {
				t.total[k] += w
			}
		}
		if info.hasSelf[s] {
			t.self[info.self[s]] += w
		}
	}
	return t
}

// Coverage returns the weight of the samples whose stack has at least
// one key (total), and of those whose leaf frame has one (self). Unlike
// summing Timings, no sample is counted twice.
func Coverage[K comparable](info *Info[K], samples *model.SamplesTable) (self, total float64) {
	if info == nil {
		return 0, 0
	}
	for i, s := range samples.Stack {
		if s == model.NoStack || info.total[s] == nil {
			continue
		}
		w := samples.WeightAt(i)
		total += w
		if info.hasSelf[s] {
			self += w
		}
	}
	return self, total
}

func (t Timings[K]) IsEmpty() bool { return len(t.total) == 0 && len(t.self) == 0 }

// Total returns the total weight of the key.
func (t Timings[K]) Total(k K) float64 { return t.total[k] }

// Self returns the self weight of the key.
func (t Timings[K]) Self(k K) float64 { return t.self[k] }

func (t Timings[K]) TotalLen() int { return len(t.total) }

func (t Timings[K]) SelfLen() int { return len(t.self) }

func (t Timings[K]) EachTotal(fn func(K, float64)) {
	for k, v := range t.total {
		fn(k, v)
	}
}

func (t Timings[K]) EachSelf(fn func(K, float64)) {
	for k, v := range t.self {
		fn(k, v)
	}
}

// TotalMap returns a copy of the total weights.
func (t Timings[K]) TotalMap() map[K]float64 { return copyMap(t.total) }

// SelfMap returns a copy of the self weights.
func (t Timings[K]) SelfMap() map[K]float64 { return copyMap(t.self) }

func copyMap[K comparable](m map[K]float64) map[K]float64 {
	c := make(map[K]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
