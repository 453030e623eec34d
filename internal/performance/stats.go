package performance

import (
	"math"
	"sort"
	"time"

	"github.com/newthinker/tradesim/internal/portfolio"
)

const (
	TradingDaysPerYear = 252
	RiskFreeRate       = 1.0 // annual, percent

	// SortinoApproximationFactor scales Sharpe in SortinoApproximate mode.
	SortinoApproximationFactor = 1.2
)

// sortedEquity returns a copy of points stably ordered by timestamp.
func sortedEquity(points []portfolio.EquityPoint) []portfolio.EquityPoint {
	out := make([]portfolio.EquityPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func values(points []portfolio.EquityPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// returns computes consecutive fractional changes, skipping a zero base.
func returns(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1] == 0 {
			continue
		}
		out = append(out, (series[i]-series[i-1])/series[i-1])
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation
func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// covariance is the population covariance of equal-length series
func covariance(xs, ys []float64) float64 {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs))
}

// years is the calendar span in 365-day years
func years(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24 / 365
}

func totalReturn(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return (final/initial - 1) * 100
}

// annualizedReturn is 0 when the span is not positive or the ratio is undefined.
func annualizedReturn(initial, final, yrs float64) float64 {
	if yrs <= 0 || initial <= 0 || final <= 0 {
		return 0
	}
	return (math.Pow(final/initial, 1/yrs) - 1) * 100
}

func sharpeRatio(annReturn, annStdDev float64) float64 {
	if annStdDev == 0 {
		return 0
	}
	return (annReturn - RiskFreeRate) / (annStdDev * 100)
}

// downsideSortino annualizes mean daily excess return over downside deviation.
func downsideSortino(daily []float64) float64 {
	if len(daily) == 0 {
		return 0
	}
	rf := RiskFreeRate / 100 / TradingDaysPerYear
	excess := make([]float64, len(daily))
	var downside float64
	for i, r := range daily {
		excess[i] = r - rf
		if excess[i] < 0 {
			downside += excess[i] * excess[i]
		}
	}
	dd := math.Sqrt(downside / float64(len(daily)))
	if dd == 0 {
		return 0
	}
	return mean(excess) / dd * math.Sqrt(TradingDaysPerYear)
}

// drawdowns returns the per-point drawdown series, its maximum, and the longest
// run of consecutive points below the running peak. A value at or above the
// peak resets the run.
func drawdowns(points []portfolio.EquityPoint) (series []DrawdownPoint, maxDD float64, maxDuration int) {
	series = make([]DrawdownPoint, len(points))
	var peak float64
	run := 0
	for i, p := range points {
		if p.Value >= peak {
			peak = p.Value
			run = 0
		} else {
			run++
			maxDuration = max(maxDuration, run)
		}

		var dd float64
		if peak > 0 {
			dd = (peak - p.Value) / peak * 100
		}
		series[i] = DrawdownPoint{Timestamp: p.Timestamp, Drawdown: dd}
		maxDD = math.Max(maxDD, dd)
	}
	return series, maxDD, maxDuration
}

// monthlyReturns buckets sorted points by UTC calendar month. Each month runs from
// the previous month's last value, or the month's own first value for the first month.
func monthlyReturns(points []portfolio.EquityPoint) []MonthlyReturn {
	var out []MonthlyReturn
	var month string
	var base, last float64

	for i, p := range points {
		key := p.Timestamp.UTC().Format("2006-01")
		if key != month {
			if i > 0 {
				out = append(out, monthReturn(month, base, last))
				base = last
			} else {
				base = p.Value
			}
			month = key
		}
		last = p.Value
	}
	if month != "" {
		out = append(out, monthReturn(month, base, last))
	}
	return out
}

func monthReturn(month string, base, last float64) MonthlyReturn {
	var r float64
	if base != 0 {
		r = (last/base - 1) * 100
	}
	return MonthlyReturn{Month: month, Return: r}
}
