package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/marketdata"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultTimeout = 10 * time.Second
)

// validSymbol matches stock symbols like AAPL, BRK-B, 600519.SH, 0700.HK, ^GSPC
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9\-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo fetches historical bars from the Yahoo Finance chart API
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// Option configures the client
type Option func(*Yahoo)

// WithBaseURL points the client at another chart endpoint
func WithBaseURL(u string) Option {
	return func(y *Yahoo) { y.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(y *Yahoo) { y.client = c }
}

// New creates a new Yahoo provider
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		client:  &http.Client{Timeout: DefaultTimeout},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

func toYahooInterval(tf core.Timeframe) string {
	switch tf {
	case core.TimeframeMinute:
		return "1m"
	case core.TimeframeHour:
		return "1h"
	case core.TimeframeWeek:
		return "1wk"
	default:
		return "1d"
	}
}

// GetHistoricalData fetches bars in [req.Start, req.End]
func (y *Yahoo) GetHistoricalData(ctx context.Context, req marketdata.Request) (*marketdata.HistoricalData, error) {
	if err := validateSymbol(req.Symbol); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	url := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d",
		y.baseURL, toYahooSymbol(req.Symbol), toYahooInterval(req.Timeframe), req.Start.Unix(), req.End.Unix())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := y.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("symbol not found: %s", req.Symbol))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("no data for symbol: %s", req.Symbol))
	}

	bars := toBars(req.Symbol, result.Chart.Result[0])
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("no bars for symbol: %s", req.Symbol))
	}

	return &marketdata.HistoricalData{
		Symbol:     req.Symbol,
		Bars:       bars,
		DataSource: y.Name(),
	}, nil
}

func toBars(symbol string, r chartResult) []core.Bar {
	q := r.Indicators.Quote[0]
	bars := make([]core.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue // Skip missing data
		}
		bars = append(bars, core.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      deref(at(q.Open, i), *closePx),
			High:      deref(at(q.High, i), *closePx),
			Low:       deref(at(q.Low, i), *closePx),
			Close:     *closePx,
			Volume:    deref(at(q.Volume, i), 0),
		})
	}
	return bars
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func deref(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
