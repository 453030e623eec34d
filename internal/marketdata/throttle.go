package marketdata

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled limits the request rate against an upstream provider
type Throttled struct {
	next    Provider
	limiter *rate.Limiter
}

// WithRateLimit allows perMinute requests per minute with a burst of one.
// perMinute <= 0 disables throttling.
func WithRateLimit(next Provider, perMinute int) *Throttled {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (t *Throttled) Name() string {
	return t.next.Name()
}

func (t *Throttled) GetHistoricalData(ctx context.Context, req Request) (*HistoricalData, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.GetHistoricalData(ctx, req)
}
