//go:build stackscope_debug

package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grafana/stackscope/pkg/model"
)

func Test_BuildInfo_PanicsOnForwardPrefix(t *testing.T) {
	p := testPartition{
		owner: []int{1, 1},
		key:   []int{10, 20},
	}
	stacks := stackTable([]model.FrameIndex{0, 1}, []model.StackIndex{1, model.NoStack})
	assert.PanicsWithValue(t,
		"stack table is not topologically ordered: stack 0 has prefix 1",
		func() { BuildInfo[int, int](stacks, p, 1) },
	)
}

func Test_BuildInfo_PanicsOnSelfPrefix(t *testing.T) {
	p := testPartition{owner: []int{1}, key: []int{10}}
	stacks := stackTable([]model.FrameIndex{0}, []model.StackIndex{0})
	assert.Panics(t, func() { BuildInfo[int, int](stacks, p, 1) })
}
