package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/tradesim/internal/backtest"
	"github.com/newthinker/tradesim/internal/config"
	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/marketdata"
	"github.com/newthinker/tradesim/internal/metrics"
	"github.com/newthinker/tradesim/internal/performance"
	"github.com/newthinker/tradesim/internal/portfolio"
	"github.com/newthinker/tradesim/internal/progress"
	"github.com/newthinker/tradesim/internal/strategy/builtin"
)

var (
	backtestSymbols   []string
	backtestFrom      string
	backtestTo        string
	backtestCapital   float64
	backtestBenchmark string
	backtestFormat    string
	backtestOutput    string
	backtestProgress  bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run backtest on a strategy",
	Long: `Run a strategy against historical data and show performance statistics.
Flags override the corresponding config values. Available strategies: ` +
		strings.Join(builtin.Registry().Names(), ", "),
	Args: cobra.MaximumNArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringSliceVar(&backtestSymbols, "symbols", nil, "Comma separated symbols to backtest")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "Initial capital")
	backtestCmd.Flags().StringVar(&backtestBenchmark, "benchmark", "", "Benchmark symbol")
	backtestCmd.Flags().StringVarP(&backtestFormat, "format", "f", "text", "Output format: text, json or yaml")
	backtestCmd.Flags().StringVarP(&backtestOutput, "output", "o", "", "Write the report to a file instead of stdout")
	backtestCmd.Flags().BoolVar(&backtestProgress, "progress", false, "Log progress milestones")

	rootCmd.AddCommand(backtestCmd)
}

// applyBacktestFlags copies explicitly set flags over the loaded config
func applyBacktestFlags(cmd *cobra.Command, args []string, cfg *config.Config) {
	if len(args) == 1 {
		cfg.Strategy.Name = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("symbols") {
		cfg.Run.Assets = backtestSymbols
	}
	if flags.Changed("from") {
		cfg.Run.Start = backtestFrom
	}
	if flags.Changed("to") {
		cfg.Run.End = backtestTo
	}
	if flags.Changed("capital") {
		cfg.Run.InitialCapital = backtestCapital
	}
	if flags.Changed("benchmark") {
		cfg.Run.Benchmark = backtestBenchmark
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	applyBacktestFlags(cmd, args, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	format, err := parseFormat(backtestFormat)
	if err != nil {
		return err
	}

	params, err := runParams(cfg)
	if err != nil {
		return err
	}

	predicate, err := builtin.Registry().New(cfg.Strategy.Name, cfg.Strategy.ToStrategy())
	if err != nil {
		return fmt.Errorf("creating strategy: %w", err)
	}

	provider, err := buildProvider(cfg, log)
	if err != nil {
		return err
	}

	opts, err := backtestOptions(cfg, log)
	if err != nil {
		return err
	}
	if backtestProgress {
		opts.Reporter = progress.NewLogReporter(log)
	}
	reg := opts.Metrics

	bt := backtest.New(marketdata.NewAccessor(provider), opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting backtest",
		zap.String("strategy", predicate.Name()),
		zap.Strings("assets", params.Assets),
		zap.String("provider", provider.Name()),
	)

	report, runErr := bt.Run(ctx, params, predicate)

	if reg != nil && cfg.Metrics.Textfile != "" {
		if err := reg.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("writing metrics textfile failed", zap.Error(err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("backtest failed: %w", runErr)
	}

	var out io.Writer = cmd.OutOrStdout()
	if backtestOutput != "" {
		f, err := os.Create(backtestOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return writeReport(out, report, format)
}

// backtestOptions maps the simulator, analysis, fetch and metrics sections onto
// orchestrator options.
func backtestOptions(cfg *config.Config, log *zap.Logger) (backtest.Options, error) {
	valuation, err := portfolio.ParseValuationPolicy(cfg.Simulator.ValuationPolicy)
	if err != nil {
		return backtest.Options{}, err
	}
	sortino, err := performance.ParseSortinoMode(cfg.Analysis.SortinoMode)
	if err != nil {
		return backtest.Options{}, err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	return backtest.Options{
		Lookback:    cfg.Simulator.Lookback,
		Valuation:   valuation,
		SortinoMode: sortino,
		Concurrency: cfg.Fetch.Concurrency,
		Metrics:     reg,
		Logger:      log,
	}, nil
}

func runParams(cfg *config.Config) (backtest.RunParams, error) {
	start, end, err := cfg.Run.Dates()
	if err != nil {
		return backtest.RunParams{}, err
	}
	tf, err := core.ParseTimeframe(cfg.Run.Timeframe)
	if err != nil {
		return backtest.RunParams{}, err
	}
	return backtest.RunParams{
		Start:          start,
		End:            end,
		InitialCapital: cfg.Run.InitialCapital,
		Assets:         cfg.Run.Assets,
		Timeframe:      tf,
		Limit:          cfg.Run.Limit,
		Benchmark:      cfg.Run.Benchmark,
	}, nil
}
