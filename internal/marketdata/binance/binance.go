// Package binance serves historical spot klines from the Binance REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/marketdata"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	// pageSize is the kline endpoint's maximum rows per request
	pageSize = 1000
)

// Compile-time interface check
var _ marketdata.Provider = (*Binance)(nil)

// Binance fetches klines for symbols like BTCUSDT
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance provider
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: DefaultBaseURL,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = strings.TrimSuffix(url, "/")
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// GetHistoricalData pages through /api/v3/klines from req.Start until req.End,
// stopping early once req.Limit bars are collected.
func (b *Binance) GetHistoricalData(ctx context.Context, req marketdata.Request) (*marketdata.HistoricalData, error) {
	symbol := strings.ToUpper(req.Symbol)
	interval := toInterval(req.Timeframe)

	var bars []core.Bar
	from := req.Start
	for {
		page, err := b.fetchPage(ctx, symbol, interval, from, req.End)
		if err != nil {
			return nil, err
		}
		bars = append(bars, page...)

		if len(page) < pageSize || (req.Limit > 0 && len(bars) >= req.Limit) {
			break
		}
		from = page[len(page)-1].Timestamp.Add(time.Millisecond)
		if from.After(req.End) {
			break
		}
	}

	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable,
			fmt.Errorf("no klines for %s between %s and %s", symbol, req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly)))
	}

	return &marketdata.HistoricalData{
		Symbol:     symbol,
		Bars:       bars,
		DataSource: b.Name(),
	}, nil
}

func (b *Binance) fetchPage(ctx context.Context, symbol, interval string, start, end time.Time) ([]core.Bar, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
		b.baseURL, symbol, interval, start.UnixMilli(), end.UnixMilli(), pageSize)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("fetching klines: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		// unknown symbols are rejected with 400 and code -1121
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("binance rejected %s", symbol))
	case resp.StatusCode != http.StatusOK:
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding response: %w", err))
	}

	bars := make([]core.Bar, 0, len(klines))
	for _, k := range klines {
		if bar, ok := parseKline(symbol, k); ok {
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

// parseKline reads [openTime, open, high, low, close, volume, ...]; prices arrive as strings.
func parseKline(symbol string, k []any) (core.Bar, bool) {
	if len(k) < 6 {
		return core.Bar{}, false
	}
	openTime, ok := k[0].(float64)
	if !ok {
		return core.Bar{}, false
	}

	var fields [5]float64
	for i := range fields {
		s, _ := k[i+1].(string)
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Bar{}, false
		}
		fields[i] = v
	}

	return core.Bar{
		Symbol:    symbol,
		Timestamp: time.UnixMilli(int64(openTime)).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, true
}

func toInterval(tf core.Timeframe) string {
	switch tf {
	case core.TimeframeMinute:
		return "1m"
	case core.TimeframeHour:
		return "1h"
	case core.TimeframeWeek:
		return "1w"
	default:
		return "1d"
	}
}
