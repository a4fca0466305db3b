// Package pprof converts pprof profiles into thread tables.
package pprof

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/google/pprof/profile"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/grafana/stackscope/pkg/model"
)

var (
	gzipReaderPool = sync.Pool{
		New: func() any {
			return &gzipReader{
				reader: bytes.NewReader(nil),
			}
		},
	}
	bufPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(nil)
		},
	}
)

type gzipReader struct {
	gzip   *gzip.Reader
	reader *bytes.Reader
}

// open gzip, create reader if required
func (r *gzipReader) gzipOpen() error {
	var err error
	if r.gzip == nil {
		r.gzip, err = gzip.NewReader(r.reader)
	} else {
		err = r.gzip.Reset(r.reader)
	}
	return err
}

func (r *gzipReader) openBytes(input []byte) (io.Reader, error) {
	r.reader.Reset(input)

	// handle if data is not gzipped at all
	if err := r.gzipOpen(); err == gzip.ErrHeader || err == io.EOF {
		r.reader.Reset(input)
		return r.reader, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "gzip reset")
	}

	return r.gzip, nil
}

// Parse decodes a gzipped or a plain pprof profile.
func Parse(input []byte) (*profile.Profile, error) {
	gzipReader := gzipReaderPool.Get().(*gzipReader)
	buf := bufPool.Get().(*bytes.Buffer)
	defer func() {
		gzipReaderPool.Put(gzipReader)
		buf.Reset()
		bufPool.Put(buf)
	}()

	r, err := gzipReader.openBytes(input)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(buf, r); err != nil {
		return nil, errors.Wrap(err, "copy to buffer")
	}
	p, err := profile.ParseUncompressed(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "parse profile")
	}
	return p, nil
}

func OpenFile(path string) (*profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// TimestampLabel is the numeric sample label read as the sample time.
const TimestampLabel = "timestamp"

type Options struct {
	// SampleType selects the sample value used as the weight.
	// Defaults to the profile's default sample type, or the last one.
	SampleType string
	ThreadName string
}

// SampleTypeIndex returns the index of the sample value named sampleType.
func SampleTypeIndex(p *profile.Profile, sampleType string) (int, error) {
	if len(p.SampleType) == 0 {
		return 0, errors.New("profile has no sample types")
	}
	if sampleType == "" {
		sampleType = p.DefaultSampleType
	}
	if sampleType == "" {
		return len(p.SampleType) - 1, nil
	}
	for i, t := range p.SampleType {
		if t.Type == sampleType {
			return i, nil
		}
	}
	return 0, model.NotFoundError{Err: errors.Errorf("sample type %q not found", sampleType)}
}

// Import builds a thread from the profile. Every pprof line becomes a
// frame; inlined lines of a location share its address and native
// symbol, which is the outermost function of the location.
func Import(p *profile.Profile, opts Options) (*model.Thread, error) {
	vi, err := SampleTypeIndex(p, opts.SampleType)
	if err != nil {
		return nil, err
	}
	name := opts.ThreadName
	if name == "" {
		name = p.SampleType[vi].Type
	}
	imp := importer{
		b:         model.NewThreadBuilder(name),
		locations: make(map[uint64][]model.FrameIndex, len(p.Location)),
	}

	type sample struct {
		stack  model.StackIndex
		weight float64
		time   float64
	}
	samples := make([]sample, 0, len(p.Sample))
	for i, s := range p.Sample {
		if vi >= len(s.Value) {
			return nil, errors.Errorf("sample %d has %d values, expected at least %d", i, len(s.Value), vi+1)
		}
		stack := model.NoStack
		for j := len(s.Location) - 1; j >= 0; j-- {
			for _, f := range imp.frames(s.Location[j]) {
				stack = imp.b.Stack(stack, f)
			}
		}
		t := float64(i)
		if ts, ok := s.NumLabel[TimestampLabel]; ok && len(ts) > 0 {
			t = float64(ts[0])
		}
		samples = append(samples, sample{stack: stack, weight: float64(s.Value[vi]), time: t})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].time < samples[j].time })
	for _, s := range samples {
		imp.b.Sample(s.stack, s.weight, s.time)
	}

	thread := imp.b.Thread()
	if err = thread.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid thread")
	}
	return thread, nil
}

type importer struct {
	b         *model.ThreadBuilder
	locations map[uint64][]model.FrameIndex
}

// frames returns the frames of the location, root first.
func (x *importer) frames(loc *profile.Location) []model.FrameIndex {
	if frames, ok := x.locations[loc.ID]; ok {
		return frames
	}
	address := model.NoAddress
	symbol := model.NoNativeSymbol
	if loc.Address != 0 {
		address = model.Address(loc.Address)
		symbol = x.b.NativeSymbol(symbolName(loc), model.NoAddress)
	}
	var frames []model.FrameIndex
	if len(loc.Line) == 0 {
		fn := x.b.Func(symbolName(loc), model.NoSource, model.NoLine, false)
		frames = append(frames, x.b.Frame(fn, address, model.NoLine, symbol))
	}
	// Line[0] is the innermost inlined call.
	for i := len(loc.Line) - 1; i >= 0; i-- {
		line := loc.Line[i]
		fn := x.function(line.Function, loc)
		ln := model.NoLine
		if line.Line > 0 {
			ln = model.LineNumber(line.Line)
		}
		frames = append(frames, x.b.Frame(fn, address, ln, symbol))
	}
	x.locations[loc.ID] = frames
	return frames
}

func (x *importer) function(f *profile.Function, loc *profile.Location) model.FuncIndex {
	if f == nil {
		return x.b.Func(symbolName(loc), model.NoSource, model.NoLine, false)
	}
	start := model.NoLine
	if f.StartLine > 0 {
		start = model.LineNumber(f.StartLine)
	}
	return x.b.Func(f.Name, x.b.Source(f.Filename), start, false)
}

func symbolName(loc *profile.Location) string {
	if n := len(loc.Line); n > 0 && loc.Line[n-1].Function != nil {
		return loc.Line[n-1].Function.Name
	}
	if loc.Mapping != nil && loc.Mapping.File != "" {
		return fmt.Sprintf("%s+0x%x", loc.Mapping.File, loc.Address-loc.Mapping.Start+loc.Mapping.Offset)
	}
	return fmt.Sprintf("0x%x", loc.Address)
}
