// Package marketdata turns provider responses into validated bar series.
package marketdata

import (
	"context"
	"time"

	"github.com/newthinker/tradesim/internal/core"
)

// Request describes one historical bar query. Limit <= 0 means no limit.
type Request struct {
	Symbol    string
	Timeframe core.Timeframe
	Start     time.Time
	End       time.Time
	Limit     int
}

// HistoricalData is a provider response
type HistoricalData struct {
	Symbol     string     `json:"symbol"`
	Bars       []core.Bar `json:"bars"`
	DataSource string     `json:"data_source"`
}

// Provider fetches historical bars from an upstream source.
// Implementations must return an error, not an empty series, when no bars exist.
type Provider interface {
	Name() string
	GetHistoricalData(ctx context.Context, req Request) (*HistoricalData, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, req Request) (*HistoricalData, error)

func (f ProviderFunc) Name() string { return "func" }

func (f ProviderFunc) GetHistoricalData(ctx context.Context, req Request) (*HistoricalData, error) {
	return f(ctx, req)
}
