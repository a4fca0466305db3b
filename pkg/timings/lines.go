// Package timings instantiates the attribution engine for source
// lines and instruction addresses.
package timings

import (
	"github.com/grafana/stackscope/pkg/attribution"
	"github.com/grafana/stackscope/pkg/model"
)

type (
	LineInfo    = attribution.Info[model.LineNumber]
	LineTimings = attribution.Timings[model.LineNumber]
)

// LinePartition attributes frames to the source file of their function,
// keyed by line. Frames without a line fall back to the line the
// function is declared at.
type LinePartition struct {
	frames *model.FrameTable
	funcs  *model.FuncTable
}

func NewLinePartition(frames *model.FrameTable, funcs *model.FuncTable) LinePartition {
	return LinePartition{frames: frames, funcs: funcs}
}

func (p LinePartition) Owner(frame model.FrameIndex) (model.SourceIndex, bool) {
	s := p.funcs.Source[p.frames.Func[frame]]
	return s, s != model.NoSource
}

func (p LinePartition) Key(frame model.FrameIndex) (model.LineNumber, bool) {
	if line := p.frames.Line[frame]; line != model.NoLine {
		return line, true
	}
	line := p.funcs.LineNumber[p.frames.Func[frame]]
	return line, line != model.NoLine
}

// BuildLineInfo builds the line attribution for the source file.
// A NoSource file yields nil, i.e. nothing is selected.
func BuildLineInfo(t *model.Thread, file model.SourceIndex) *LineInfo {
	if file == model.NoSource {
		return nil
	}
	return attribution.BuildInfo[model.SourceIndex, model.LineNumber](&t.Stacks, NewLinePartition(&t.Frames, &t.Funcs), file)
}

func ComputeLineTimings(info *LineInfo, samples *model.SamplesTable) LineTimings {
	return attribution.ComputeTimings(info, samples)
}

func EmptyLineTimings() LineTimings { return attribution.EmptyTimings[model.LineNumber]() }

// CallNodeLineTotals returns the per-line totals of the file restricted
// to the call node described by framePerStack.
func CallNodeLineTotals(t *model.Thread, samples *model.SamplesTable, framePerStack []model.FrameIndex, file model.SourceIndex) map[model.LineNumber]float64 {
	return attribution.ComputeCallNodeTotals[model.SourceIndex, model.LineNumber](samples, framePerStack, NewLinePartition(&t.Frames, &t.Funcs), file)
}
