package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"

	stackcontext "github.com/grafana/stackscope/pkg/context"
	"github.com/grafana/stackscope/pkg/model"
)

var cfg struct {
	verbose    bool
	metrics    bool
	configFile string
	overrides  overrides
}

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

func main() {
	app := kingpin.New(filepath.Base(os.Args[0]), "Attributes sampled call stacks to source lines, instruction addresses and call nodes.").UsageWriter(os.Stdout)
	app.Version(version.Print("stackscope"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Default("0").BoolVar(&cfg.verbose)
	app.Flag("metrics", "Print the selector metrics to stderr before exiting.").Default("0").BoolVar(&cfg.metrics)
	app.Flag("config.file", "YAML configuration file.").ExistingFileVar(&cfg.configFile)
	cfg.overrides = newOverrides()
	addOverrideFlags(app, &cfg.overrides)

	linesCmd := app.Command("lines", "Self and total time per line of a source file.")
	linesParams := addLinesParams(linesCmd)

	addressesCmd := app.Command("addresses", "Self and total time per instruction address of a native symbol.")
	addressesParams := addAddressesParams(addressesCmd)

	callNodeCmd := app.Command("callnode", "Time per line or address within the subtree of a call node.")
	callNodeParams := addCallNodeParams(callNodeCmd)

	filesCmd := app.Command("files", "Self and total time per source file.")
	filesParams := addFilesParams(filesCmd)

	// parse command line arguments
	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// enable verbose logging if requested
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	reg := prometheus.NewRegistry()
	ctx := stackcontext.WithLogger(context.Background(), logger)
	ctx = stackcontext.WithRegistry(ctx, reg)
	ctx = stackcontext.WithOutput(ctx, os.Stdout)

	c, err := loadConfig(cfg.configFile)
	if err != nil {
		os.Exit(checkError(err))
	}
	c.apply(cfg.overrides)
	if err = c.Validate(); err != nil {
		os.Exit(checkError(err))
	}

	switch parsedCmd {
	case linesCmd.FullCommand():
		err = lines(ctx, c, linesParams)
	case addressesCmd.FullCommand():
		err = addresses(ctx, c, addressesParams)
	case callNodeCmd.FullCommand():
		err = callNode(ctx, c, callNodeParams)
	case filesCmd.FullCommand():
		err = files(ctx, c, filesParams)
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
	}

	if cfg.metrics {
		if mErr := dumpMetrics(reg, consoleOutput); mErr != nil {
			level.Warn(logger).Log("msg", "failed to print metrics", "err", mErr)
		}
	}
	os.Exit(checkError(err))
}

func checkError(err error) int {
	switch {
	case err == nil:
		return 0
	case model.IsNotFoundError(err):
		fmt.Fprintf(os.Stderr, "not found: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return 1
}

func dumpMetrics(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err = enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
