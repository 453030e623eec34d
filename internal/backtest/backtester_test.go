package backtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/metrics"
	"github.com/newthinker/tradesim/internal/progress"
	"github.com/newthinker/tradesim/internal/strategy"
	"github.com/newthinker/tradesim/internal/strategy/breakout"
)

var baseTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// mockFetcher implements BarFetcher for testing
type mockFetcher struct {
	mu    sync.Mutex
	bars  map[string][]core.Bar
	errs  map[string]error
	calls []string
}

func (m *mockFetcher) Source() string { return "mock" }

func (m *mockFetcher) FetchBars(ctx context.Context, symbol string, tf core.Timeframe, start, end time.Time, limit int) ([]core.Bar, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	bars, ok := m.bars[symbol]
	if !ok {
		return nil, core.WrapError(core.ErrDataUnavailable, errors.New(symbol))
	}
	return bars, nil
}

func series(symbol string, closes ...float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Symbol: symbol, Timestamp: baseTime.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

// mockStrategy enters on every flat bar and exits on every held bar
type mockStrategy struct{}

func (mockStrategy) Name() string { return "churn" }
func (mockStrategy) ShouldEnter(strategy.Input) bool { return true }
func (mockStrategy) ShouldExit(strategy.Input, core.Position) bool { return true }

func params(assets ...string) RunParams {
	return RunParams{
		Start:          baseTime,
		End:            baseTime.AddDate(0, 0, 9),
		InitialCapital: 100000,
		Assets:         assets,
		Timeframe:      core.TimeframeDay,
		Benchmark:      "SPY",
	}
}

func TestBacktester_Run_ShortSeriesNoTrades(t *testing.T) {
	fetcher := &mockFetcher{bars: map[string][]core.Bar{
		"AAPL": series("AAPL", 100, 101, 99, 103, 108),
	}}
	pred, err := breakout.New(strategy.Config{StopLossPct: 0.10, TakeProfitPct: 0.20})
	require.NoError(t, err)

	p := params("AAPL")
	p.InitialCapital = 10000
	report, err := New(fetcher, Options{}).Run(context.Background(), p, pred)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.TotalTrades)
	assert.Equal(t, 0.0, report.Summary.TotalReturn)
	assert.Equal(t, 0.0, report.Summary.WinRate)
	assert.Len(t, report.EquityCurve, 5)
	assert.False(t, report.Benchmark.Available)
	assert.Equal(t, 0.0, report.Benchmark.Beta)
	assert.Equal(t, breakout.Name, report.Strategy)
	assert.NotEmpty(t, report.RunID)
}

func TestBacktester_Run_SkipsFailedAsset(t *testing.T) {
	fetcher := &mockFetcher{
		bars: map[string][]core.Bar{
			"AAPL": series("AAPL", 100, 102, 104, 103, 105, 107),
			"SPY":  series("SPY", 400, 401, 402, 404, 403, 405),
		},
		errs: map[string]error{"BAD": errors.New("upstream 500")},
	}

	report, err := New(fetcher, Options{}).Run(context.Background(), params("aapl", "BAD", "AAPL"), mockStrategy{})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, report.Assets)
	require.Len(t, report.SkippedAssets, 1)
	assert.Equal(t, "BAD", report.SkippedAssets[0].Symbol)
	assert.Contains(t, report.SkippedAssets[0].Reason, "upstream 500")
	assert.NotZero(t, report.Summary.TotalTrades, "expected trades from AAPL")
	assert.True(t, report.Benchmark.Available)
}

func TestBacktester_Run_AllAssetsFail(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	fetcher := &mockFetcher{errs: map[string]error{"A": errA, "B": errB}}

	_, err := New(fetcher, Options{}).Run(context.Background(), params("A", "B"), mockStrategy{})
	require.ErrorIs(t, err, core.ErrRunFailed)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestBacktester_Run_InvalidParams(t *testing.T) {
	b := New(&mockFetcher{}, Options{})

	_, err := b.Run(context.Background(), params(), mockStrategy{})
	assert.ErrorIs(t, err, core.ErrConfigMissing, "no assets")

	p := params("A")
	p.InitialCapital = 0
	_, err = b.Run(context.Background(), p, mockStrategy{})
	assert.ErrorIs(t, err, core.ErrConfigInvalid, "zero capital")
}

func TestBacktester_Run_ProgressSteps(t *testing.T) {
	fetcher := &mockFetcher{bars: map[string][]core.Bar{
		"AAPL": series("AAPL", 1, 2, 3),
		"MSFT": series("MSFT", 3, 2, 1),
	}}

	var states []progress.State
	reporter := progress.ReporterFunc(func(_ context.Context, s progress.State) error {
		states = append(states, s)
		return errors.New("reporter errors are ignored")
	})

	_, err := New(fetcher, Options{Reporter: reporter}).Run(context.Background(), params("AAPL", "MSFT"), mockStrategy{})
	require.NoError(t, err)

	want := []string{
		"Initializing",
		"Fetching data for AAPL",
		"Analyzing AAPL data",
		"Fetching data for MSFT",
		"Analyzing MSFT data",
		"Calculating performance metrics",
		"Fetching benchmark data",
		"Backtest completed",
	}
	require.Len(t, states, len(want))
	for i, s := range states {
		assert.Equal(t, want[i], s.CurrentStep, "step %d", i)
		assert.Equal(t, len(want), s.TotalSteps)
	}
	assert.Equal(t, 100.0, states[len(states)-1].PercentComplete)
}

func TestBacktester_Run_ContextCancellation(t *testing.T) {
	fetcher := &mockFetcher{bars: map[string][]core.Bar{"AAPL": series("AAPL", 1, 2, 3)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := New(fetcher, Options{}).Run(ctx, params("AAPL"), mockStrategy{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrRunFailed, "cancellation is not a run failure")
}

func TestBacktester_Run_ConcurrentPrefetchMatchesSequential(t *testing.T) {
	bars := map[string][]core.Bar{
		"AAA": series("AAA", 10, 11, 12, 11, 13, 14, 12),
		"BBB": series("BBB", 50, 49, 52, 55, 53, 54, 56),
		"CCC": series("CCC", 20, 21, 19, 22, 23, 21, 24),
	}

	seq, err := New(&mockFetcher{bars: bars}, Options{}).Run(context.Background(), params("AAA", "BBB", "CCC"), mockStrategy{})
	require.NoError(t, err)

	fetcher := &mockFetcher{bars: bars}
	par, err := New(fetcher, Options{Concurrency: 3}).Run(context.Background(), params("AAA", "BBB", "CCC"), mockStrategy{})
	require.NoError(t, err)

	assert.Equal(t, seq.EquityCurve, par.EquityCurve)
	assert.Equal(t, seq.Summary.TotalReturn, par.Summary.TotalReturn)
	// three assets plus the benchmark
	assert.Len(t, fetcher.calls, 4)
}

func TestBacktester_Run_RecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	fetcher := &mockFetcher{
		bars: map[string][]core.Bar{"AAPL": series("AAPL", 100, 101, 102, 103)},
		errs: map[string]error{"BAD": errors.New("nope")},
	}

	_, err := New(fetcher, Options{Metrics: reg}).Run(context.Background(), params("AAPL", "BAD"), mockStrategy{})
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += "/" + l.GetValue()
			}
			if c := m.GetCounter(); c != nil {
				values[key] = c.GetValue()
			}
		}
	}

	checks := map[string]float64{
		"tradesim_backtests_total/success": 1,
		"tradesim_assets_total/simulated":  1,
		"tradesim_assets_total/skipped":    1,
		"tradesim_bars_simulated_total":    4,
		"tradesim_trades_total/BUY":        2,
		"tradesim_trades_total/SELL":       2,
	}
	for key, want := range checks {
		assert.Equal(t, want, values[key], key)
	}
}

func TestNormalizeAssets(t *testing.T) {
	got := normalizeAssets([]string{" aapl", "MSFT", "", "AAPL", "msft", "spy"})
	assert.Equal(t, []string{"AAPL", "MSFT", "SPY"}, got)
}
