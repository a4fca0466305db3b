// Package selector serves timings for interactive selections. Attribution
// info is built once per (thread, mode, target) and memoized; the per
// selection aggregation is recomputed on every call.
package selector

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/grafana/stackscope/pkg/attribution"
	"github.com/grafana/stackscope/pkg/callnode"
	"github.com/grafana/stackscope/pkg/model"
	"github.com/grafana/stackscope/pkg/timings"
)

type Mode string

const (
	ModeLines     Mode = "lines"
	ModeAddresses Mode = "addresses"
	modeCallNodes Mode = "callnodes"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeLines, ModeAddresses:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q, expected %q or %q", s, ModeLines, ModeAddresses)
}

type Config struct {
	CacheSize int `yaml:"cache_size"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("", f)
}

func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.CacheSize, prefix+"selector.cache-size", 128, "Maximum number of attribution infos kept in memory. Each one costs a pointer per stack.")
}

func (cfg *Config) Validate() error {
	if cfg.CacheSize < 1 {
		return fmt.Errorf("invalid selector.cache-size value %d, must be positive", cfg.CacheSize)
	}
	return nil
}

type cacheKey struct {
	thread uint64
	mode   Mode
	target int32
}

func (k cacheKey) String() string {
	return strconv.FormatUint(k.thread, 16) + "/" + string(k.mode) + "/" + strconv.Itoa(int(k.target))
}

// Selector is safe for concurrent use. A single selector can serve any
// number of threads: cache entries are keyed by the thread fingerprint.
type Selector struct {
	logger  log.Logger
	metrics *metrics
	cache   *lru.Cache[cacheKey, any]
	group   singleflight.Group
}

func New(logger log.Logger, cfg Config, reg prometheus.Registerer) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Selector{
		logger:  logger,
		metrics: newMetrics(reg),
	}
	cache, err := lru.NewWithEvict[cacheKey, any](cfg.CacheSize, func(k cacheKey, _ any) {
		s.metrics.evictions.Inc()
		level.Debug(s.logger).Log("msg", "evicted attribution info", "key", k)
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// load returns the cached value for the key, building it at most once
// among concurrent callers.
func load[V any](s *Selector, k cacheKey, build func() V) V {
	if v, ok := s.cache.Get(k); ok {
		s.metrics.lookups.WithLabelValues(string(k.mode), resultHit).Inc()
		return v.(V)
	}
	s.metrics.lookups.WithLabelValues(string(k.mode), resultMiss).Inc()
	v, _, _ := s.group.Do(k.String(), func() (any, error) {
		if v, ok := s.cache.Peek(k); ok {
			return v, nil
		}
		start := time.Now()
		v := build()
		d := time.Since(start)
		s.metrics.buildDuration.WithLabelValues(string(k.mode)).Observe(d.Seconds())
		s.cache.Add(k, v)
		s.metrics.cached.Set(float64(s.cache.Len()))
		level.Debug(s.logger).Log("msg", "built attribution info", "mode", k.mode, "target", k.target, "duration", d)
		return v, nil
	})
	return v.(V)
}

func (s *Selector) lineInfo(t *model.Thread, file model.SourceIndex) *timings.LineInfo {
	if file == model.NoSource {
		return nil
	}
	k := cacheKey{thread: t.Fingerprint(), mode: ModeLines, target: int32(file)}
	return load(s, k, func() *timings.LineInfo { return timings.BuildLineInfo(t, file) })
}

func (s *Selector) addressInfo(t *model.Thread, symbol model.NativeSymbolIndex) *timings.AddressInfo {
	if symbol == model.NoNativeSymbol {
		return nil
	}
	k := cacheKey{thread: t.Fingerprint(), mode: ModeAddresses, target: int32(symbol)}
	return load(s, k, func() *timings.AddressInfo { return timings.BuildAddressInfo(t, symbol) })
}

func (s *Selector) callNodes(t *model.Thread) *callnode.Info {
	k := cacheKey{thread: t.Fingerprint(), mode: modeCallNodes, target: model.Sentinel}
	return load(s, k, func() *callnode.Info { return callnode.Build(&t.Stacks, &t.Frames) })
}

// LineTimings returns the per-line timings of the file over the samples.
// NoSource selects nothing.
func (s *Selector) LineTimings(t *model.Thread, file model.SourceIndex, samples *model.SamplesTable) timings.LineTimings {
	return timings.ComputeLineTimings(s.lineInfo(t, file), samples)
}

// AddressTimings returns the per-address timings of the native symbol
// over the samples. NoNativeSymbol selects nothing.
func (s *Selector) AddressTimings(t *model.Thread, symbol model.NativeSymbolIndex, samples *model.SamplesTable) timings.AddressTimings {
	return timings.ComputeAddressTimings(s.addressInfo(t, symbol), samples)
}

// FileCoverage returns the weight of the samples that run code of the
// file (total), and of those whose leaf frame is in the file (self).
func (s *Selector) FileCoverage(t *model.Thread, file model.SourceIndex, samples *model.SamplesTable) (self, total float64) {
	return attribution.Coverage(s.lineInfo(t, file), samples)
}

// Preview returns the samples with start <= time < end.
func (s *Selector) Preview(t *model.Thread, start, end float64) *model.SamplesTable {
	return t.Samples.Range(start, end)
}

// CallNode resolves a path of function names, root first. A name may
// match functions of several sources; the path must still lead to
// exactly one call node.
func (s *Selector) CallNode(t *model.Thread, path []string) (callnode.Index, error) {
	if len(path) == 0 {
		return callnode.None, errors.New("empty call path")
	}
	funcs := make([][]model.FuncIndex, len(path))
	for i, name := range path {
		fns, err := t.FindFuncs(name)
		if err != nil {
			return callnode.None, err
		}
		funcs[i] = fns
	}
	nodes := s.callNodes(t).FindPaths(funcs)
	switch len(nodes) {
	case 0:
		return callnode.None, model.NotFoundError{Err: errors.Errorf("call path %v not found", path)}
	case 1:
		return nodes[0], nil
	default:
		return callnode.None, errors.Errorf("call path %v is ambiguous: %d call nodes match", path, len(nodes))
	}
}

// CallNodeLineTotals returns the per-line totals of the file within the
// subtree of the call node.
func (s *Selector) CallNodeLineTotals(t *model.Thread, c callnode.Index, file model.SourceIndex, samples *model.SamplesTable) map[model.LineNumber]float64 {
	frames := s.callNodes(t).FramePerStack(&t.Stacks, c)
	return timings.CallNodeLineTotals(t, samples, frames, file)
}

// CallNodeAddressTotals returns the per-address totals of the native
// symbol within the subtree of the call node.
func (s *Selector) CallNodeAddressTotals(t *model.Thread, c callnode.Index, symbol model.NativeSymbolIndex, samples *model.SamplesTable) map[model.Address]float64 {
	frames := s.callNodes(t).FramePerStack(&t.Stacks, c)
	return timings.CallNodeAddressTotals(t, samples, frames, symbol)
}
