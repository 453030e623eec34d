package core

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is the bar interval of a historical series ("1m", "1h", "1d", "1w").
type Timeframe string

const (
	TimeframeMinute Timeframe = "1m"
	TimeframeHour   Timeframe = "1h"
	TimeframeDay    Timeframe = "1d"
	TimeframeWeek   Timeframe = "1w"
)

// ParseTimeframe normalizes a user supplied interval
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1d", "d", "day", "daily":
		return TimeframeDay, nil
	case "1h", "h", "hour", "hourly":
		return TimeframeHour, nil
	case "1m", "m", "min", "minute":
		return TimeframeMinute, nil
	case "1w", "w", "week", "weekly":
		return TimeframeWeek, nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
}

// Bar is one OHLCV observation. Timestamps serialize as ISO-8601 (RFC 3339).
type Bar struct {
	Symbol    string    `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Open      float64   `json:"open" yaml:"open"`
	High      float64   `json:"high" yaml:"high"`
	Low       float64   `json:"low" yaml:"low"`
	Close     float64   `json:"close" yaml:"close"`
	Volume    float64   `json:"volume" yaml:"volume"`
}

// IsValid reports whether the bar can be priced.
func (b Bar) IsValid() bool {
	return !b.Timestamp.IsZero() && b.Close > 0
}

// Closes extracts closing prices in series order
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Position is an open holding in one symbol. It exists only while Quantity > 0.
type Position struct {
	Symbol        string  `json:"symbol" yaml:"symbol"`
	Quantity      int     `json:"quantity" yaml:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price" yaml:"avg_entry_price"`
}

// UnrealizedReturn is the fractional change of price against the average entry price.
func (p Position) UnrealizedReturn(price float64) float64 {
	if p.AvgEntryPrice <= 0 {
		return 0
	}
	return price/p.AvgEntryPrice - 1
}
