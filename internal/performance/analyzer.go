package performance

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/ledger"
	"github.com/newthinker/tradesim/internal/portfolio"
)

// SortinoMode selects how the Sortino ratio is derived
type SortinoMode string

const (
	// SortinoApproximate reports Sharpe scaled by SortinoApproximationFactor.
	SortinoApproximate SortinoMode = "approximate"
	// SortinoDownside divides mean excess return by downside deviation.
	SortinoDownside SortinoMode = "downside"
)

// ParseSortinoMode accepts the config spelling; empty means SortinoApproximate.
func ParseSortinoMode(s string) (SortinoMode, error) {
	switch SortinoMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortinoApproximate:
		return SortinoApproximate, nil
	case SortinoDownside:
		return SortinoDownside, nil
	default:
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown sortino mode %q", s))
	}
}

// Input is everything the analyzer needs from a finished simulation
type Input struct {
	Strategy       string
	InitialCapital float64
	StartDate      time.Time
	EndDate        time.Time
	Assets         []string
	SkippedAssets  []SkippedAsset
	Equity         []portfolio.EquityPoint
	Trades         []ledger.Trade
	OpenPositions  []core.Position
}

// Analyzer computes performance reports. Degenerate inputs produce zeroed
// fields, never errors.
type Analyzer struct {
	sortino SortinoMode
	logger  *zap.Logger
	newID   func() string
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(mode SortinoMode, logger *zap.Logger) *Analyzer {
	if mode == "" {
		mode = SortinoApproximate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{sortino: mode, logger: logger, newID: uuid.NewString}
}

// Analyze builds the report without benchmark figures; see CompareBenchmark.
func (a *Analyzer) Analyze(in Input) *Report {
	equity := sortedEquity(in.Equity)
	series := values(equity)

	final := in.InitialCapital
	if len(series) > 0 {
		final = series[len(series)-1]
	}

	start, end := in.StartDate, in.EndDate
	if (start.IsZero() || end.IsZero()) && len(equity) > 0 {
		start, end = equity[0].Timestamp, equity[len(equity)-1].Timestamp
	}

	daily := returns(series)
	annStd := stdDev(daily) * math.Sqrt(TradingDaysPerYear)
	annRet := annualizedReturn(in.InitialCapital, final, years(start, end))
	sharpe := sharpeRatio(annRet, annStd)

	var sortino float64
	switch a.sortino {
	case SortinoDownside:
		sortino = downsideSortino(daily)
	default:
		sortino = sharpe * SortinoApproximationFactor
	}

	ddSeries, maxDD, ddDuration := drawdowns(equity)
	var calmar float64
	if maxDD > 0 {
		calmar = annRet / maxDD
	}

	var winning int
	var fees float64
	for _, t := range in.Trades {
		if t.Type == ledger.Sell && t.GrossValue > 0 {
			winning++
		}
		fees += t.Fees
	}
	var winRate float64
	if len(in.Trades) > 0 {
		winRate = float64(winning) / float64(len(in.Trades)) * 100
	}

	trades := make([]ledger.Trade, len(in.Trades))
	copy(trades, in.Trades)

	return &Report{
		RunID:         a.newID(),
		Strategy:      in.Strategy,
		StartDate:     start,
		EndDate:       end,
		Assets:        in.Assets,
		SkippedAssets: in.SkippedAssets,
		Summary: Summary{
			InitialCapital:      in.InitialCapital,
			FinalValue:          final,
			TotalReturn:         totalReturn(in.InitialCapital, final),
			AnnualizedReturn:    annRet,
			Volatility:          annStd * 100,
			SharpeRatio:         sharpe,
			SortinoRatio:        sortino,
			CalmarRatio:         calmar,
			MaxDrawdown:         maxDD,
			MaxDrawdownDuration: ddDuration,
			TotalTrades:         len(in.Trades),
			WinningTrades:       winning,
			WinRate:             winRate,
			TotalFees:           fees,
			Attribution:         ledger.Attribute(in.Trades),
		},
		Trades:         trades,
		EquityCurve:    equity,
		Drawdowns:      ddSeries,
		MonthlyReturns: monthlyReturns(equity),
		OpenPositions:  in.OpenPositions,
	}
}

// CompareBenchmark fills r.Benchmark from the benchmark bars. A fetch error or fewer
// than two bars zeroes the benchmark figures; alpha then equals the annualized return.
func (a *Analyzer) CompareBenchmark(r *Report, symbol string, bars []core.Bar, fetchErr error) {
	b := Benchmark{Symbol: symbol}
	defer func() {
		b.Alpha = r.Summary.AnnualizedReturn - b.AnnualizedReturn
		r.Benchmark = b
	}()

	if fetchErr != nil {
		a.logger.Warn("benchmark unavailable",
			zap.String("symbol", symbol),
			zap.Error(fetchErr),
		)
		return
	}
	if len(bars) < 2 {
		a.logger.Warn("benchmark has insufficient data",
			zap.String("symbol", symbol),
			zap.Int("bars", len(bars)),
		)
		return
	}

	first, last := bars[0].Close, bars[len(bars)-1].Close
	b.Available = true
	b.Return = totalReturn(first, last)
	b.AnnualizedReturn = annualizedReturn(first, last, years(r.StartDate, r.EndDate))
	b.Beta = beta(r.EquityCurve, bars)
}

const dateLayout = "2006-01-02"

// beta aligns equity and benchmark by calendar date, keeping the last value per
// date, and regresses strategy returns on benchmark returns over common dates.
func beta(equity []portfolio.EquityPoint, bars []core.Bar) float64 {
	strat := make(map[string]float64, len(equity))
	for _, p := range equity {
		strat[p.Timestamp.UTC().Format(dateLayout)] = p.Value
	}
	bench := make(map[string]float64, len(bars))
	for _, b := range bars {
		bench[b.Timestamp.UTC().Format(dateLayout)] = b.Close
	}

	dates := make([]string, 0, len(bench))
	for d := range bench {
		if _, ok := strat[d]; ok {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	if len(dates) < 2 {
		return 0
	}

	var sr, br []float64
	for i := 1; i < len(dates); i++ {
		s0, s1 := strat[dates[i-1]], strat[dates[i]]
		b0, b1 := bench[dates[i-1]], bench[dates[i]]
		if s0 == 0 || b0 == 0 {
			continue
		}
		sr = append(sr, (s1-s0)/s0)
		br = append(br, (b1-b0)/b0)
	}

	variance := covariance(br, br)
	if variance == 0 {
		return 0
	}
	return covariance(sr, br) / variance
}
