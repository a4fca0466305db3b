package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v3"

	"github.com/grafana/stackscope/pkg/report"
	"github.com/grafana/stackscope/pkg/selector"
)

type config struct {
	Output       string          `yaml:"output"`
	SampleType   string          `yaml:"sample_type"`
	Top          int             `yaml:"top"`
	HotThreshold float64         `yaml:"hot_threshold"`
	Concurrency  int             `yaml:"concurrency"`
	Selector     selector.Config `yaml:"selector"`
}

func (c *config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Output, "output", string(report.FormatTable), "Output format, one of: table, json.")
	f.StringVar(&c.SampleType, "sample-type", "", "Sample type used as the weight. Defaults to the profile's default sample type.")
	f.IntVar(&c.Top, "top", 20, "Number of rows to print. 0 prints all rows.")
	f.Float64Var(&c.HotThreshold, "hot-threshold", report.DefaultHotThreshold, "Share of the selected weight above which rows are highlighted.")
	f.IntVar(&c.Concurrency, "concurrency", 8, "Number of files attributed concurrently.")
	c.Selector.RegisterFlags(f)
}

func (c *config) Validate() error {
	if _, err := report.ParseFormat(c.Output); err != nil {
		return err
	}
	if c.Top < 0 {
		return fmt.Errorf("invalid top value %d, must not be negative", c.Top)
	}
	if c.HotThreshold < 0 || c.HotThreshold > 1 {
		return fmt.Errorf("invalid hot-threshold value %v, must be within [0, 1]", c.HotThreshold)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency value %d, must be positive", c.Concurrency)
	}
	return c.Selector.Validate()
}

func defaultConfig() config {
	var c config
	var f flag.FlagSet
	c.RegisterFlags(&f)
	return c
}

// loadConfig reads the YAML configuration over the defaults.
// An empty path yields the defaults.
func loadConfig(path string) (config, error) {
	c := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, errors.Wrap(err, "read configuration")
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&c); err != nil && err != io.EOF {
			return c, errors.Wrapf(err, "parse configuration %s", path)
		}
	}
	return c, nil
}

// optional is a command line value that is applied over the
// configuration only when the flag is given.
type optional[T any] struct {
	v     *T
	parse func(string) (T, error)
}

func (o *optional[T]) Set(s string) error {
	v, err := o.parse(s)
	if err != nil {
		return err
	}
	o.v = &v
	return nil
}

func (o *optional[T]) String() string {
	if o.v == nil {
		return ""
	}
	return fmt.Sprint(*o.v)
}

func optionalInt() optional[int] {
	return optional[int]{parse: strconv.Atoi}
}

func optionalFloat() optional[float64] {
	return optional[float64]{parse: func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }}
}

// overrides are the command line values that take precedence
// over the configuration file when set.
type overrides struct {
	output       string
	sampleType   string
	top          optional[int]
	hotThreshold optional[float64]
	concurrency  optional[int]
	cacheSize    optional[int]
}

func newOverrides() overrides {
	return overrides{
		top:          optionalInt(),
		hotThreshold: optionalFloat(),
		concurrency:  optionalInt(),
		cacheSize:    optionalInt(),
	}
}

func addOverrideFlags(app *kingpin.Application, o *overrides) {
	app.Flag("output", "Output format, one of: table, json. Overrides the configuration file.").Short('o').StringVar(&o.output)
	app.Flag("sample-type", "Sample type used as the weight. Overrides the configuration file.").StringVar(&o.sampleType)
	app.Flag("top", "Number of rows to print, 0 prints all rows. Overrides the configuration file.").Short('n').SetValue(&o.top)
	app.Flag("hot-threshold", "Share of the selected weight above which rows are highlighted. Overrides the configuration file.").SetValue(&o.hotThreshold)
	app.Flag("concurrency", "Number of files attributed concurrently. Overrides the configuration file.").SetValue(&o.concurrency)
	app.Flag("selector.cache-size", "Maximum number of attribution infos kept in memory. Overrides the configuration file.").SetValue(&o.cacheSize)
}

func (c *config) apply(o overrides) {
	if o.output != "" {
		c.Output = o.output
	}
	if o.sampleType != "" {
		c.SampleType = o.sampleType
	}
	if o.top.v != nil {
		c.Top = *o.top.v
	}
	if o.hotThreshold.v != nil {
		c.HotThreshold = *o.hotThreshold.v
	}
	if o.concurrency.v != nil {
		c.Concurrency = *o.concurrency.v
	}
	if o.cacheSize.v != nil {
		c.Selector.CacheSize = *o.cacheSize.v
	}
}
