package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/newthinker/tradesim/internal/core"
	"go.uber.org/zap"
)

// Retrying retries a provider with exponential backoff starting at baseDelay.
// Errors coded core.ErrDataUnavailable are final: an empty series will not fill on retry.
type Retrying struct {
	next        Provider
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// WithRetry decorates next. maxAttempts < 1 is treated as 1.
func WithRetry(next Provider, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrying{
		next:        next,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

func (r *Retrying) Name() string {
	return r.next.Name()
}

func (r *Retrying) GetHistoricalData(ctx context.Context, req Request) (*HistoricalData, error) {
	var (
		data *HistoricalData
		err  error
	)
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		data, err = r.next.GetHistoricalData(ctx, req)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, core.ErrDataUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == r.maxAttempts {
			break
		}

		r.logger.Debug("retrying historical fetch",
			zap.String("provider", r.next.Name()),
			zap.String("symbol", req.Symbol),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, err
}
