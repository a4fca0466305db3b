package timings

import (
	"github.com/grafana/stackscope/pkg/attribution"
	"github.com/grafana/stackscope/pkg/model"
)

type (
	AddressInfo    = attribution.Info[model.Address]
	AddressTimings = attribution.Timings[model.Address]
)

// AddressPartition attributes frames to their native symbol,
// keyed by instruction address.
type AddressPartition struct {
	frames *model.FrameTable
}

func NewAddressPartition(frames *model.FrameTable) AddressPartition {
	return AddressPartition{frames: frames}
}

func (p AddressPartition) Owner(frame model.FrameIndex) (model.NativeSymbolIndex, bool) {
	s := p.frames.NativeSymbol[frame]
	return s, s != model.NoNativeSymbol
}

func (p AddressPartition) Key(frame model.FrameIndex) (model.Address, bool) {
	a := p.frames.Address[frame]
	return a, a != model.NoAddress
}

// BuildAddressInfo builds the address attribution for the native symbol.
// NoNativeSymbol yields nil, i.e. nothing is selected.
func BuildAddressInfo(t *model.Thread, symbol model.NativeSymbolIndex) *AddressInfo {
	if symbol == model.NoNativeSymbol {
		return nil
	}
	return attribution.BuildInfo[model.NativeSymbolIndex, model.Address](&t.Stacks, NewAddressPartition(&t.Frames), symbol)
}

func ComputeAddressTimings(info *AddressInfo, samples *model.SamplesTable) AddressTimings {
	return attribution.ComputeTimings(info, samples)
}

func EmptyAddressTimings() AddressTimings { return attribution.EmptyTimings[model.Address]() }

// CallNodeAddressTotals returns the per-address totals of the native
// symbol restricted to the call node described by framePerStack.
func CallNodeAddressTotals(t *model.Thread, samples *model.SamplesTable, framePerStack []model.FrameIndex, symbol model.NativeSymbolIndex) map[model.Address]float64 {
	return attribution.ComputeCallNodeTotals[model.NativeSymbolIndex, model.Address](samples, framePerStack, NewAddressPartition(&t.Frames), symbol)
}
