package alpaca

import (
	"context"
	"fmt"
	"strings"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/marketdata"
)

// Compile-time interface check
var _ marketdata.Provider = (*Alpaca)(nil)

// barsGetter is the slice of the Alpaca SDK client used here
type barsGetter interface {
	GetBars(symbol string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error)
}

// Config holds Alpaca market-data credentials
type Config struct {
	APIKey    string
	APISecret string
	DataURL   string // optional override of the data API base URL
	Feed      string // "sip" or "iex"; empty uses the account default
}

// Alpaca fetches historical bars from the Alpaca market-data API
type Alpaca struct {
	client barsGetter
	feed   alpacamd.Feed
}

// New creates a provider backed by the Alpaca SDK client
func New(cfg Config) *Alpaca {
	opts := alpacamd.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}
	return &Alpaca{
		client: alpacamd.NewClient(opts),
		feed:   alpacamd.Feed(cfg.Feed),
	}
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

func toTimeFrame(tf core.Timeframe) alpacamd.TimeFrame {
	switch tf {
	case core.TimeframeMinute:
		return alpacamd.NewTimeFrame(1, alpacamd.Min)
	case core.TimeframeHour:
		return alpacamd.NewTimeFrame(1, alpacamd.Hour)
	case core.TimeframeWeek:
		return alpacamd.NewTimeFrame(1, alpacamd.Week)
	default:
		return alpacamd.NewTimeFrame(1, alpacamd.Day)
	}
}

// GetHistoricalData fetches bars in [req.Start, req.End]
func (a *Alpaca) GetHistoricalData(ctx context.Context, req marketdata.Request) (*marketdata.HistoricalData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(req.Symbol)
	alpacaBars, err := a.client.GetBars(symbol, alpacamd.GetBarsRequest{
		TimeFrame:  toTimeFrame(req.Timeframe),
		Start:      req.Start,
		End:        req.End,
		TotalLimit: max(req.Limit, 0),
		Feed:       a.feed,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("GetBars %s: %w", symbol, err))
	}
	if len(alpacaBars) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("no bars for symbol: %s", symbol))
	}

	bars := make([]core.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, core.Bar{
			Symbol:    symbol,
			Timestamp: ab.Timestamp.UTC(),
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    float64(ab.Volume),
		})
	}

	return &marketdata.HistoricalData{
		Symbol:     symbol,
		Bars:       bars,
		DataSource: a.Name(),
	}, nil
}
