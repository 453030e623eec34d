package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/newthinker/tradesim/internal/performance"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

func writeReport(w io.Writer, r *performance.Report, format outputFormat) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r *performance.Report) error {
	s := r.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "=== tradesim Backtest ===")
	fmt.Fprintf(tw, "Run:\t%s\n", r.RunID)
	fmt.Fprintf(tw, "Strategy:\t%s\n", r.Strategy)
	fmt.Fprintf(tw, "Period:\t%s to %s\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Fprintf(tw, "Assets:\t%s\n", strings.Join(r.Assets, ", "))
	for _, sk := range r.SkippedAssets {
		fmt.Fprintf(tw, "Skipped:\t%s (%s)\n", sk.Symbol, sk.Reason)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Initial capital:\t%.2f\n", s.InitialCapital)
	fmt.Fprintf(tw, "Final value:\t%.2f\n", s.FinalValue)
	fmt.Fprintf(tw, "Total return:\t%.2f%%\n", s.TotalReturn)
	fmt.Fprintf(tw, "Annualized return:\t%.2f%%\n", s.AnnualizedReturn)
	fmt.Fprintf(tw, "Volatility:\t%.2f%%\n", s.Volatility)
	fmt.Fprintf(tw, "Sharpe / Sortino:\t%.3f / %.3f\n", s.SharpeRatio, s.SortinoRatio)
	fmt.Fprintf(tw, "Max drawdown:\t%.2f%% over %d bars\n", s.MaxDrawdown, s.MaxDrawdownDuration)
	fmt.Fprintf(tw, "Calmar:\t%.3f\n", s.CalmarRatio)
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Trades:\t%d (fees %.2f)\n", s.TotalTrades, s.TotalFees)
	fmt.Fprintf(tw, "Win rate:\t%.2f%% (matched %.2f%%)\n", s.WinRate, s.Attribution.MatchedWinRate)
	fmt.Fprintf(tw, "Profit factor:\t%.3f\n", s.Attribution.ProfitFactor)
	fmt.Fprintf(tw, "Avg win / loss:\t%.2f / %.2f\n", s.Attribution.AvgWinningTrade, s.Attribution.AvgLosingTrade)
	fmt.Fprintf(tw, "Largest win / loss:\t%.2f / %.2f\n", s.Attribution.LargestWinningTrade, s.Attribution.LargestLosingTrade)

	if b := r.Benchmark; b.Available {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Benchmark:\t%s\n", b.Symbol)
		fmt.Fprintf(tw, "Benchmark return:\t%.2f%% (annualized %.2f%%)\n", b.Return, b.AnnualizedReturn)
		fmt.Fprintf(tw, "Alpha / Beta:\t%.2f / %.3f\n", b.Alpha, b.Beta)
	}

	if len(r.MonthlyReturns) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Month\tReturn")
		for _, m := range r.MonthlyReturns {
			fmt.Fprintf(tw, "%s\t%.2f%%\n", m.Month, m.Return)
		}
	}

	for _, p := range r.OpenPositions {
		fmt.Fprintf(tw, "Open:\t%s %d @ %.2f\n", p.Symbol, p.Quantity, p.AvgEntryPrice)
	}

	return tw.Flush()
}
