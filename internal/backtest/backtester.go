// Package backtest drives a multi-asset run from data fetch to the final report.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/ledger"
	"github.com/newthinker/tradesim/internal/metrics"
	"github.com/newthinker/tradesim/internal/performance"
	"github.com/newthinker/tradesim/internal/portfolio"
	"github.com/newthinker/tradesim/internal/progress"
	"github.com/newthinker/tradesim/internal/strategy"
)

// BarFetcher defines the interface for fetching validated historical bars
type BarFetcher interface {
	Source() string
	FetchBars(ctx context.Context, symbol string, tf core.Timeframe, start, end time.Time, limit int) ([]core.Bar, error)
}

// RunParams describes one backtest
type RunParams struct {
	Start          time.Time
	End            time.Time
	InitialCapital float64
	Assets         []string
	Timeframe      core.Timeframe
	Limit          int
	Benchmark      string // empty skips the benchmark comparison
}

// Options tunes a Backtester. Zero values select defaults.
type Options struct {
	Lookback    int
	Valuation   portfolio.ValuationPolicy
	SortinoMode performance.SortinoMode
	Concurrency int // > 1 prefetches bars concurrently
	Reporter    progress.Reporter
	Metrics     *metrics.Registry
	Logger      *zap.Logger
}

// Backtester runs strategy backtests against historical data
type Backtester struct {
	data   BarFetcher
	opts   Options
	logger *zap.Logger
}

// New creates a new Backtester with the given bar source
func New(data BarFetcher, opts Options) *Backtester {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{
		data:   data,
		opts:   opts,
		logger: logger,
	}
}

type fetchResult struct {
	bars []core.Bar
	err  error
}

// Run replays every asset in order against one portfolio and analyzes the result.
// Assets whose data cannot be fetched are skipped; if none remain the error matches
// core.ErrRunFailed and wraps every per-asset cause. Cancellation returns ctx.Err().
func (b *Backtester) Run(ctx context.Context, params RunParams, predicate strategy.Predicate) (*performance.Report, error) {
	started := time.Now()
	report, err := b.run(ctx, params, predicate)

	status := "success"
	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		status = "cancelled"
	case err != nil:
		status = "failed"
	}
	b.opts.Metrics.RecordBacktest(status, time.Since(started).Seconds())
	return report, err
}

func (b *Backtester) run(ctx context.Context, params RunParams, predicate strategy.Predicate) (*performance.Report, error) {
	assets := normalizeAssets(params.Assets)
	if len(assets) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no assets to backtest"))
	}
	if predicate == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("strategy predicate required"))
	}
	if params.Timeframe == "" {
		params.Timeframe = core.TimeframeDay
	}

	pf, err := portfolio.New(params.InitialCapital)
	if err != nil {
		return nil, err
	}
	trades := ledger.New()
	sim := portfolio.NewSimulator(pf, trades, predicate, portfolio.Options{
		Lookback:  b.opts.Lookback,
		Valuation: b.opts.Valuation,
		Logger:    b.logger,
	})

	tracker := progress.NewTracker(1+2*len(assets)+3, b.opts.Reporter, b.logger)
	tracker.Step(ctx, "Initializing")

	prefetched, err := b.prefetch(ctx, params, assets)
	if err != nil {
		return nil, err
	}

	var (
		simulated []string
		skipped   []performance.SkippedAsset
		causes    []error
	)

	for i, asset := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tracker.Step(ctx, "Fetching data for "+asset)
		var res fetchResult
		if prefetched != nil {
			res = prefetched[i]
		} else {
			res.bars, res.err = b.fetch(ctx, asset, params)
		}

		if res.err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			b.logger.Warn("skipping asset",
				zap.String("symbol", asset),
				zap.Error(res.err),
			)
			skipped = append(skipped, performance.SkippedAsset{Symbol: asset, Reason: res.err.Error()})
			causes = append(causes, res.err)
			b.opts.Metrics.RecordAsset("skipped", 0)
			tracker.Step(ctx, "Skipped "+asset)
			continue
		}

		tracker.Step(ctx, "Analyzing "+asset+" data")
		out, err := sim.RunAsset(ctx, asset, res.bars)
		if err != nil {
			return nil, err
		}

		simulated = append(simulated, asset)
		b.opts.Metrics.RecordAsset("simulated", out.Bars)
		b.opts.Metrics.RecordTrades(string(ledger.Buy), out.Buys)
		b.opts.Metrics.RecordTrades(string(ledger.Sell), out.Sells)
		b.logger.Info("asset simulated",
			zap.String("symbol", asset),
			zap.Int("bars", out.Bars),
			zap.Int("buys", out.Buys),
			zap.Int("sells", out.Sells),
		)
	}

	if len(simulated) == 0 {
		return nil, core.WrapError(core.ErrRunFailed, errors.Join(causes...))
	}

	tracker.Step(ctx, "Calculating performance metrics")
	analyzer := performance.NewAnalyzer(b.opts.SortinoMode, b.logger)
	report := analyzer.Analyze(performance.Input{
		Strategy:       predicate.Name(),
		InitialCapital: params.InitialCapital,
		StartDate:      params.Start,
		EndDate:        params.End,
		Assets:         simulated,
		SkippedAssets:  skipped,
		Equity:         pf.Equity(),
		Trades:         trades.Trades(),
		OpenPositions:  pf.Positions(),
	})

	tracker.Step(ctx, "Fetching benchmark data")
	if params.Benchmark != "" {
		bench, err := b.fetch(ctx, params.Benchmark, params)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		analyzer.CompareBenchmark(report, strings.ToUpper(params.Benchmark), bench, err)
	} else {
		analyzer.CompareBenchmark(report, "", nil, errors.New("no benchmark configured"))
	}

	tracker.Complete(ctx, "Backtest completed")
	b.opts.Metrics.SetLastRun(report.Summary.TotalReturn, report.Summary.MaxDrawdown, report.Summary.SharpeRatio)

	b.logger.Info("backtest completed",
		zap.String("run_id", report.RunID),
		zap.String("strategy", report.Strategy),
		zap.Int("assets", len(simulated)),
		zap.Int("skipped", len(skipped)),
		zap.Int("trades", report.Summary.TotalTrades),
		zap.Float64("total_return", report.Summary.TotalReturn),
	)
	return report, nil
}

func (b *Backtester) fetch(ctx context.Context, symbol string, params RunParams) ([]core.Bar, error) {
	started := time.Now()
	bars, err := b.data.FetchBars(ctx, symbol, params.Timeframe, params.Start, params.End, params.Limit)
	b.opts.Metrics.RecordFetch(b.data.Source(), err == nil, time.Since(started).Seconds())
	return bars, err
}

// prefetch loads every asset concurrently when Concurrency > 1. Results keep asset
// order; per-asset failures are carried in the result, not returned.
func (b *Backtester) prefetch(ctx context.Context, params RunParams, assets []string) ([]fetchResult, error) {
	if b.opts.Concurrency <= 1 {
		return nil, nil
	}

	results := make([]fetchResult, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, asset := range assets {
		g.Go(func() error {
			bars, err := b.fetch(gctx, asset, params)
			results[i] = fetchResult{bars: bars, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// normalizeAssets uppercases symbols and drops blanks and duplicates, keeping order.
func normalizeAssets(assets []string) []string {
	seen := make(map[string]bool, len(assets))
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
