package attribution

import (
	"github.com/grafana/stackscope/pkg/model"
)

// ComputeCallNodeTotals sums sample weights per key for a single call
// node. framePerStack maps every stack to the frame that represents the
// call node within the stack, or model.NoFrame if the stack does not
// pass through the call node. No ancestor accumulation is needed: each
// sample contributes to at most one key.
func ComputeCallNodeTotals[T, K comparable](
	samples *model.SamplesTable,
	framePerStack []model.FrameIndex,
	p Partition[T, K],
	target T,
) map[K]float64 {
	totals := make(map[K]float64)
	for i, s := range samples.Stack {
		if s == model.NoStack {
			continue
		}
		frame := framePerStack[s]
		if frame == model.NoFrame {
			continue
		}
		k, ok := key(p, frame, target)
		if !ok {
			continue
		}
		totals[k] += samples.WeightAt(i)
	}
	return totals
}
