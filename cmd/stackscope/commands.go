package main

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gopkg.in/alecthomas/kingpin.v2"

	stackcontext "github.com/grafana/stackscope/pkg/context"
	"github.com/grafana/stackscope/pkg/model"
	"github.com/grafana/stackscope/pkg/pprof"
	"github.com/grafana/stackscope/pkg/report"
	"github.com/grafana/stackscope/pkg/selector"
)

type commander interface {
	Flag(name, help string) *kingpin.FlagClause
	Arg(name, help string) *kingpin.ArgClause
}

type profileParams struct {
	Path  string
	Range string
}

func addProfileParams(cmd commander) *profileParams {
	params := new(profileParams)
	cmd.Arg("profile", "pprof file, gzipped or not.").Required().ExistingFileVar(&params.Path)
	cmd.Flag("range", "Preview selection as start:end sample times, end excluded. Either side may be empty.").StringVar(&params.Range)
	return params
}

type linesParams struct {
	*profileParams
	File string
}

func addLinesParams(cmd commander) *linesParams {
	params := &linesParams{profileParams: addProfileParams(cmd)}
	cmd.Flag("file", "Source file, matched exactly or as a substring.").Required().StringVar(&params.File)
	return params
}

type addressesParams struct {
	*profileParams
	Symbol string
}

func addAddressesParams(cmd commander) *addressesParams {
	params := &addressesParams{profileParams: addProfileParams(cmd)}
	cmd.Flag("symbol", "Native symbol, matched exactly or as a substring.").Required().StringVar(&params.Symbol)
	return params
}

type callNodeParams struct {
	*profileParams
	Path   string
	Mode   string
	File   string
	Symbol string
}

func addCallNodeParams(cmd commander) *callNodeParams {
	params := &callNodeParams{profileParams: addProfileParams(cmd)}
	cmd.Flag("path", "Comma separated function names from the root to the call node.").Required().StringVar(&params.Path)
	cmd.Flag("mode", "Partition of the call node time, one of: lines, addresses.").Default(string(selector.ModeLines)).StringVar(&params.Mode)
	cmd.Flag("file", "Source file for the lines mode.").StringVar(&params.File)
	cmd.Flag("symbol", "Native symbol for the addresses mode.").StringVar(&params.Symbol)
	return params
}

type filesParams struct {
	*profileParams
}

func addFilesParams(cmd commander) *filesParams {
	return &filesParams{profileParams: addProfileParams(cmd)}
}

// parseRange parses "start:end". Missing bounds are unbounded.
func parseRange(s string) (start, end float64, err error) {
	start, end = math.Inf(-1), math.Inf(1)
	if s == "" {
		return start, end, nil
	}
	from, to, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, errors.Errorf("invalid range %q, expected start:end", s)
	}
	if from != "" {
		if start, err = strconv.ParseFloat(from, 64); err != nil {
			return 0, 0, errors.Wrapf(err, "invalid range start %q", from)
		}
	}
	if to != "" {
		if end, err = strconv.ParseFloat(to, 64); err != nil {
			return 0, 0, errors.Wrapf(err, "invalid range end %q", to)
		}
	}
	if end < start {
		return 0, 0, errors.Errorf("invalid range %q, end is before start", s)
	}
	return start, end, nil
}

func parseCallPath(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(name string, _ int) string {
		return strings.TrimSpace(name)
	}))
}

// session holds what every command needs: the thread, the selector
// and the selected samples.
type session struct {
	thread   *model.Thread
	selector *selector.Selector
	samples  *model.SamplesTable
}

func openSession(ctx context.Context, c config, p *profileParams) (*session, error) {
	logger := stackcontext.Logger(ctx)
	start, end, err := parseRange(p.Range)
	if err != nil {
		return nil, err
	}
	prof, err := pprof.OpenFile(p.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open profile %s", p.Path)
	}
	thread, err := pprof.Import(prof, pprof.Options{SampleType: c.SampleType})
	if err != nil {
		return nil, errors.Wrapf(err, "import profile %s", p.Path)
	}
	level.Debug(logger).Log(
		"msg", "profile imported",
		"path", p.Path,
		"sample_type", thread.Name,
		"stacks", humanize.Comma(int64(thread.Stacks.Len())),
		"frames", humanize.Comma(int64(thread.Frames.Len())),
		"samples", humanize.Comma(int64(thread.Samples.Len())),
	)
	sel, err := selector.New(logger, c.Selector, stackcontext.Registry(ctx))
	if err != nil {
		return nil, err
	}
	samples := &thread.Samples
	if p.Range != "" {
		samples = sel.Preview(thread, start, end)
		level.Debug(logger).Log("msg", "preview selection", "start", start, "end", end, "samples", samples.Len())
	}
	return &session{thread: thread, selector: sel, samples: samples}, nil
}

func writeReport(ctx context.Context, c config, r *report.Report) error {
	r.Top(c.Top)
	format, err := report.ParseFormat(c.Output)
	if err != nil {
		return err
	}
	return report.NewWriter(stackcontext.Output(ctx), format).WithHotThreshold(c.HotThreshold).Write(r)
}

func lines(ctx context.Context, c config, p *linesParams) error {
	s, err := openSession(ctx, c, p.profileParams)
	if err != nil {
		return err
	}
	file, err := s.thread.FindSource(p.File)
	if err != nil {
		return err
	}
	t := s.selector.LineTimings(s.thread, file, s.samples)
	return writeReport(ctx, c, &report.Report{
		Title:   s.thread.SourceName(file),
		KeyName: "line",
		Weight:  s.samples.TotalWeight(),
		Rows:    report.Rows(t, report.FormatLine),
	})
}

func addresses(ctx context.Context, c config, p *addressesParams) error {
	s, err := openSession(ctx, c, p.profileParams)
	if err != nil {
		return err
	}
	symbol, err := s.thread.FindNativeSymbol(p.Symbol)
	if err != nil {
		return err
	}
	t := s.selector.AddressTimings(s.thread, symbol, s.samples)
	return writeReport(ctx, c, &report.Report{
		Title:   s.thread.NativeSymbolName(symbol),
		KeyName: "address",
		Weight:  s.samples.TotalWeight(),
		Rows:    report.Rows(t, report.FormatAddress),
	})
}

func callNode(ctx context.Context, c config, p *callNodeParams) error {
	mode, err := selector.ParseMode(p.Mode)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, c, p.profileParams)
	if err != nil {
		return err
	}
	path := parseCallPath(p.Path)
	node, err := s.selector.CallNode(s.thread, path)
	if err != nil {
		return err
	}
	r := &report.Report{Weight: s.samples.TotalWeight()}
	switch mode {
	case selector.ModeLines:
		if p.File == "" {
			return errors.New("--file is required in the lines mode")
		}
		file, err := s.thread.FindSource(p.File)
		if err != nil {
			return err
		}
		r.Title = strings.Join(path, " > ") + " @ " + s.thread.SourceName(file)
		r.KeyName = "line"
		r.Rows = report.TotalRows(s.selector.CallNodeLineTotals(s.thread, node, file, s.samples), report.FormatLine)
	case selector.ModeAddresses:
		if p.Symbol == "" {
			return errors.New("--symbol is required in the addresses mode")
		}
		symbol, err := s.thread.FindNativeSymbol(p.Symbol)
		if err != nil {
			return err
		}
		r.Title = strings.Join(path, " > ") + " @ " + s.thread.NativeSymbolName(symbol)
		r.KeyName = "address"
		r.Rows = report.TotalRows(s.selector.CallNodeAddressTotals(s.thread, node, symbol, s.samples), report.FormatAddress)
	}
	return writeReport(ctx, c, r)
}

func files(ctx context.Context, c config, p *filesParams) error {
	s, err := openSession(ctx, c, p.profileParams)
	if err != nil {
		return err
	}
	rows := make([]report.Row, len(s.thread.Sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file := model.SourceIndex(i)
			self, total := s.selector.FileCoverage(s.thread, file, s.samples)
			rows[i] = report.Row{Key: s.thread.SourceName(file), Self: self, Total: total}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}
	rows = lo.Filter(rows, func(r report.Row, _ int) bool { return r.Total != 0 || r.Self != 0 })
	report.SortRows(rows)
	return writeReport(ctx, c, &report.Report{
		Title:   s.thread.Name,
		KeyName: "file",
		Weight:  s.samples.TotalWeight(),
		Rows:    rows,
	})
}
