package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grafana/stackscope/pkg/model"
)

func Test_ComputeCallNodeTotals(t *testing.T) {
	// Frames 0 and 1 share key 0x30 of owner 1, frame 2 belongs to owner 2,
	// frame 3 has no key.
	p := testPartition{
		owner: []int{1, 1, 2, 1},
		key:   []int{0x30, 0x30, 0x50, -1},
	}
	// Stacks 0..4: the call node of interest is represented by frame 0
	// in stacks 0 and 2, and unrelated to stacks 1 and 3.
	framePerStack := []model.FrameIndex{0, model.NoFrame, 0, model.NoFrame, 2, 3}
	samples := &model.SamplesTable{
		Stack:  []model.StackIndex{0, 1, 2, 3, 4, 5, -1},
		Weight: []float64{1, 10, 2, 20, 100, 1000, 5},
	}
	totals := ComputeCallNodeTotals[int, int](samples, framePerStack, p, 1)
	assert.Equal(t, map[int]float64{0x30: 3}, totals)

	totals = ComputeCallNodeTotals[int, int](samples, framePerStack, p, 2)
	assert.Equal(t, map[int]float64{0x50: 100}, totals)

	totals = ComputeCallNodeTotals[int, int](samples, framePerStack, p, 3)
	assert.Empty(t, totals)
}

func Test_ComputeCallNodeTotals_DefaultWeight(t *testing.T) {
	p := testPartition{owner: []int{1}, key: []int{7}}
	samples := &model.SamplesTable{Stack: []model.StackIndex{0, 0, 0}}
	totals := ComputeCallNodeTotals[int, int](samples, []model.FrameIndex{0}, p, 1)
	assert.Equal(t, map[int]float64{7: 3}, totals)
}
