package timings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/stackscope/pkg/callnode"
	"github.com/grafana/stackscope/pkg/model"
)

func lineKeys(info *LineInfo, s model.StackIndex) []model.LineNumber {
	return info.TotalKeys(s).Keys()
}

func Test_LineTimings(t *testing.T) {
	b := model.NewThreadBuilder("main")
	fileF := b.Source("f.js")
	fileG := b.Source("g.js")
	root := b.Frame(b.Func("root", fileF, 1, true), model.NoAddress, 10, model.NoNativeSymbol)
	child := b.Frame(b.Func("child", fileF, 15, true), model.NoAddress, 20, model.NoNativeSymbol)
	grandchild := b.Frame(b.Func("grandchild", fileG, 1, true), model.NoAddress, 5, model.NoNativeSymbol)
	leaf := b.StackFromRoot(root, child, grandchild)
	b.Sample(leaf, 1, 0)
	thread := b.Thread()
	require.NoError(t, thread.Validate())

	info := BuildLineInfo(thread, fileF)
	require.Equal(t, 3, info.Len())
	assert.Equal(t, []model.LineNumber{10}, lineKeys(info, 0))
	assert.Equal(t, []model.LineNumber{10, 20}, lineKeys(info, 1))
	assert.Equal(t, []model.LineNumber{10, 20}, lineKeys(info, 2))
	assert.Same(t, info.TotalKeys(1), info.TotalKeys(2))

	for s, want := range []model.LineNumber{10, 20, model.NoLine} {
		line, ok := info.SelfKey(model.StackIndex(s))
		assert.Equal(t, want != model.NoLine, ok)
		if ok {
			assert.Equal(t, want, line)
		}
	}

	timings := ComputeLineTimings(info, &thread.Samples)
	assert.Equal(t, map[model.LineNumber]float64{10: 1, 20: 1}, timings.TotalMap())
	assert.Equal(t, map[model.LineNumber]float64{}, timings.SelfMap())

	// The grandchild's own file only sees its self time.
	timings = ComputeLineTimings(BuildLineInfo(thread, fileG), &thread.Samples)
	assert.Equal(t, map[model.LineNumber]float64{5: 1}, timings.TotalMap())
	assert.Equal(t, map[model.LineNumber]float64{5: 1}, timings.SelfMap())
}

func Test_LineTimings_FuncLineFallback(t *testing.T) {
	b := model.NewThreadBuilder("main")
	file := b.Source("f.go")
	withLine := b.Frame(b.Func("a", file, 3, false), 0x10, 7, model.NoNativeSymbol)
	noLine := b.Frame(b.Func("b", file, 40, false), 0x20, model.NoLine, model.NoNativeSymbol)
	noLineAtAll := b.Frame(b.Func("c", file, model.NoLine, false), 0x30, model.NoLine, model.NoNativeSymbol)
	b.Sample(b.StackFromRoot(withLine, noLine, noLineAtAll), 2, 0)
	thread := b.Thread()

	timings := ComputeLineTimings(BuildLineInfo(thread, file), &thread.Samples)
	assert.Equal(t, map[model.LineNumber]float64{7: 2, 40: 2}, timings.TotalMap())
	assert.Equal(t, 0, timings.SelfLen())
}

func Test_LineTimings_NothingSelected(t *testing.T) {
	b := model.NewThreadBuilder("main")
	frame := b.Frame(b.Func("a", b.Source("a.go"), 1, false), model.NoAddress, 1, model.NoNativeSymbol)
	b.Sample(b.StackFromRoot(frame), 1, 0)
	thread := b.Thread()

	info := BuildLineInfo(thread, model.NoSource)
	assert.Nil(t, info)
	timings := ComputeLineTimings(info, &thread.Samples)
	assert.True(t, timings.IsEmpty())
	assert.Equal(t, EmptyLineTimings(), timings)
}

func Test_AddressTimings(t *testing.T) {
	// The same shape as the line timings test, keyed by address.
	b := model.NewThreadBuilder("main")
	symF := b.NativeSymbol("f", 0x1000)
	symG := b.NativeSymbol("g", 0x2000)
	fn := b.Func("fn", model.NoSource, model.NoLine, false)
	root := b.Frame(fn, 0x1010, model.NoLine, symF)
	child := b.Frame(fn, 0x1020, model.NoLine, symF)
	grandchild := b.Frame(fn, 0x2005, model.NoLine, symG)
	noAddress := b.Frame(fn, model.NoAddress, model.NoLine, symF)
	leaf := b.StackFromRoot(root, child, grandchild, noAddress)
	b.Sample(leaf, 1, 0)
	thread := b.Thread()
	require.NoError(t, thread.Validate())

	info := BuildAddressInfo(thread, symF)
	require.Equal(t, 4, info.Len())
	assert.Equal(t, []model.Address{0x1010}, info.TotalKeys(0).Keys())
	assert.Equal(t, []model.Address{0x1010, 0x1020}, info.TotalKeys(1).Keys())
	assert.Same(t, info.TotalKeys(1), info.TotalKeys(2))
	assert.Same(t, info.TotalKeys(1), info.TotalKeys(3))
	_, ok := info.SelfKey(3)
	assert.False(t, ok)

	timings := ComputeAddressTimings(info, &thread.Samples)
	assert.Equal(t, map[model.Address]float64{0x1010: 1, 0x1020: 1}, timings.TotalMap())
	assert.Equal(t, 0, timings.SelfLen())

	assert.Nil(t, BuildAddressInfo(thread, model.NoNativeSymbol))
	assert.True(t, ComputeAddressTimings(nil, &thread.Samples).IsEmpty())
	assert.True(t, EmptyAddressTimings().IsEmpty())
}

func Test_AddressTimings_PreviewRange(t *testing.T) {
	b := model.NewThreadBuilder("main")
	sym := b.NativeSymbol("f", 0x1000)
	fn := b.Func("fn", model.NoSource, model.NoLine, false)
	a := b.StackFromRoot(b.Frame(fn, 0x1010, model.NoLine, sym))
	c := b.Stack(a, b.Frame(fn, 0x1020, model.NoLine, sym))
	b.Sample(a, 1, 0)
	b.Sample(c, 1, 1)
	b.Sample(c, 1, 2)
	thread := b.Thread()

	info := BuildAddressInfo(thread, sym)
	full := ComputeAddressTimings(info, &thread.Samples)
	preview := ComputeAddressTimings(info, thread.Samples.Range(1, 2))
	assert.Equal(t, map[model.Address]float64{0x1010: 3, 0x1020: 2}, full.TotalMap())
	assert.Equal(t, map[model.Address]float64{0x1010: 1, 0x1020: 1}, preview.TotalMap())
	assert.Equal(t, map[model.Address]float64{0x1020: 1}, preview.SelfMap())
}

func Test_CallNodeAddressTotals(t *testing.T) {
	// main -> a -> x and main -> b -> x, both x frames at 0x30.
	b := model.NewThreadBuilder("main")
	lib := b.NativeSymbol("lib", 0x0)
	fnMain := b.Func("main", model.NoSource, model.NoLine, false)
	fnA := b.Func("a", model.NoSource, model.NoLine, false)
	fnB := b.Func("b", model.NoSource, model.NoLine, false)
	fnX := b.Func("x", model.NoSource, model.NoLine, false)
	frMain := b.Frame(fnMain, 0x10, model.NoLine, lib)
	frA := b.Frame(fnA, 0x20, model.NoLine, lib)
	frB := b.Frame(fnB, 0x28, model.NoLine, lib)
	frX := b.Frame(fnX, 0x30, model.NoLine, lib)
	viaA := b.StackFromRoot(frMain, frA, frX)
	viaB := b.StackFromRoot(frMain, frB, frX)
	b.Sample(viaA, 1, 0)
	b.Sample(viaB, 2, 1)
	b.Sample(viaB, 2, 2)
	thread := b.Thread()

	nodes := callnode.Build(&thread.Stacks, &thread.Frames)
	node1, ok := nodes.FindPath([]model.FuncIndex{fnMain, fnA, fnX})
	require.True(t, ok)
	node2, ok := nodes.FindPath([]model.FuncIndex{fnMain, fnB, fnX})
	require.True(t, ok)
	require.NotEqual(t, node1, node2)

	totals := CallNodeAddressTotals(thread, &thread.Samples, nodes.FramePerStack(&thread.Stacks, node1), lib)
	assert.Equal(t, map[model.Address]float64{0x30: 1}, totals)
	totals = CallNodeAddressTotals(thread, &thread.Samples, nodes.FramePerStack(&thread.Stacks, node2), lib)
	assert.Equal(t, map[model.Address]float64{0x30: 4}, totals)

	// The general attribution does not distinguish the call paths.
	timings := ComputeAddressTimings(BuildAddressInfo(thread, lib), &thread.Samples)
	assert.Equal(t, 5.0, timings.Total(0x30))
	assert.Equal(t, 5.0, timings.Total(0x10))
	assert.Equal(t, 1.0, timings.Total(0x20))
	assert.Equal(t, 4.0, timings.Total(0x28))
}

func Test_CallNodeLineTotals(t *testing.T) {
	b := model.NewThreadBuilder("main")
	file := b.Source("a.go")
	fnMain := b.Func("main", file, 1, false)
	fnWork := b.Func("work", file, 10, false)
	callAt5 := b.Frame(fnMain, model.NoAddress, 5, model.NoNativeSymbol)
	callAt6 := b.Frame(fnMain, model.NoAddress, 6, model.NoNativeSymbol)
	work := b.Frame(fnWork, model.NoAddress, 12, model.NoNativeSymbol)
	b.Sample(b.StackFromRoot(callAt5, work), 1, 0)
	b.Sample(b.StackFromRoot(callAt6, work), 3, 1)
	b.Sample(b.StackFromRoot(callAt6), 1, 2)
	thread := b.Thread()

	nodes := callnode.Build(&thread.Stacks, &thread.Frames)
	mainNode, ok := nodes.FindPath([]model.FuncIndex{fnMain})
	require.True(t, ok)

	// Both main frames belong to the same call node; its subtree
	// breaks down by the line main was executing.
	totals := CallNodeLineTotals(thread, &thread.Samples, nodes.FramePerStack(&thread.Stacks, mainNode), file)
	assert.Equal(t, map[model.LineNumber]float64{5: 1, 6: 4}, totals)

	totals = CallNodeLineTotals(thread, &thread.Samples, nodes.SelfFramePerStack(&thread.Stacks, mainNode), file)
	assert.Equal(t, map[model.LineNumber]float64{6: 1}, totals)
}
