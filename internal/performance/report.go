// Package performance derives return, risk and benchmark statistics from a finished run.
package performance

import (
	"time"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/ledger"
	"github.com/newthinker/tradesim/internal/portfolio"
)

// Report is the immutable result of one backtest run
type Report struct {
	RunID          string                  `json:"run_id" yaml:"run_id"`
	Strategy       string                  `json:"strategy" yaml:"strategy"`
	StartDate      time.Time               `json:"start_date" yaml:"start_date"`
	EndDate        time.Time               `json:"end_date" yaml:"end_date"`
	Assets         []string                `json:"assets" yaml:"assets"`
	SkippedAssets  []SkippedAsset          `json:"skipped_assets,omitempty" yaml:"skipped_assets,omitempty"`
	Summary        Summary                 `json:"summary" yaml:"summary"`
	Trades         []ledger.Trade          `json:"trades" yaml:"trades"`
	EquityCurve    []portfolio.EquityPoint `json:"equity_curve" yaml:"equity_curve"`
	Drawdowns      []DrawdownPoint         `json:"drawdowns" yaml:"drawdowns"`
	MonthlyReturns []MonthlyReturn         `json:"monthly_returns" yaml:"monthly_returns"`
	Benchmark      Benchmark               `json:"benchmark" yaml:"benchmark"`
	OpenPositions  []core.Position         `json:"open_positions,omitempty" yaml:"open_positions,omitempty"`
}

// Summary is the headline statistics block. Returns, drawdowns and rates are percentages.
type Summary struct {
	InitialCapital      float64            `json:"initial_capital" yaml:"initial_capital"`
	FinalValue          float64            `json:"final_value" yaml:"final_value"`
	TotalReturn         float64            `json:"total_return" yaml:"total_return"`
	AnnualizedReturn    float64            `json:"annualized_return" yaml:"annualized_return"`
	Volatility          float64            `json:"volatility" yaml:"volatility"`
	SharpeRatio         float64            `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	SortinoRatio        float64            `json:"sortino_ratio" yaml:"sortino_ratio"`
	CalmarRatio         float64            `json:"calmar_ratio" yaml:"calmar_ratio"`
	MaxDrawdown         float64            `json:"max_drawdown" yaml:"max_drawdown"`
	MaxDrawdownDuration int                `json:"max_drawdown_duration" yaml:"max_drawdown_duration"`
	TotalTrades         int                `json:"total_trades" yaml:"total_trades"`
	WinningTrades       int                `json:"winning_trades" yaml:"winning_trades"`
	WinRate             float64            `json:"win_rate" yaml:"win_rate"`
	TotalFees           float64            `json:"total_fees" yaml:"total_fees"`
	Attribution         ledger.Attribution `json:"attribution" yaml:"attribution"`
}

// DrawdownPoint is the decline from the running peak at one equity point
type DrawdownPoint struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Drawdown  float64   `json:"drawdown" yaml:"drawdown"`
}

// MonthlyReturn is the percentage change over one calendar month (Month is YYYY-MM).
type MonthlyReturn struct {
	Month  string  `json:"month" yaml:"month"`
	Return float64 `json:"return" yaml:"return"`
}

// Benchmark compares the run against a reference series.
// Available is false when the benchmark could not be fetched or had fewer than two bars.
type Benchmark struct {
	Symbol           string  `json:"symbol" yaml:"symbol"`
	Available        bool    `json:"available" yaml:"available"`
	Return           float64 `json:"return" yaml:"return"`
	AnnualizedReturn float64 `json:"annualized_return" yaml:"annualized_return"`
	Alpha            float64 `json:"alpha" yaml:"alpha"`
	Beta             float64 `json:"beta" yaml:"beta"`
}

// SkippedAsset records an asset dropped from the run and why
type SkippedAsset struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Reason string `json:"reason" yaml:"reason"`
}
