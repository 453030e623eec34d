package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/tradesim/internal/core"
)

// Accessor returns validated, strictly time-ordered bar series. It never retries.
type Accessor struct {
	provider Provider
}

// NewAccessor wraps a provider
func NewAccessor(provider Provider) *Accessor {
	return &Accessor{provider: provider}
}

// Source names the underlying provider
func (a *Accessor) Source() string {
	return a.provider.Name()
}

// FetchBars fetches bars for symbol in [start, end]. Any provider failure or an empty
// series is reported as core.ErrDataUnavailable; context cancellation is returned as is.
func (a *Accessor) FetchBars(ctx context.Context, symbol string, tf core.Timeframe, start, end time.Time, limit int) ([]core.Bar, error) {
	data, err := a.provider.GetHistoricalData(ctx, Request{
		Symbol:    symbol,
		Timeframe: tf,
		Start:     start,
		End:       end,
		Limit:     limit,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("%s: %w", symbol, err))
	}
	if data == nil {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("%s: empty response", symbol))
	}

	bars := Normalize(symbol, data.Bars)
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable, fmt.Errorf("%s: zero bars returned", symbol))
	}
	return bars, nil
}

// Normalize copies bars, drops unpriced ones, sorts by timestamp and removes
// duplicate timestamps keeping the first occurrence.
func Normalize(symbol string, bars []core.Bar) []core.Bar {
	out := make([]core.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.IsValid() {
			continue
		}
		if b.Symbol == "" {
			b.Symbol = symbol
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	deduped := out[:0]
	for i, b := range out {
		if i > 0 && b.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}
