package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newthinker/tradesim/internal/storage/archive"
	"go.uber.org/zap"
)

// Cached stores successful provider responses in archive storage keyed by
// provider, symbol, timeframe, range and limit.
type Cached struct {
	next   Provider
	store  archive.Storage
	logger *zap.Logger
}

// WithCache decorates next with a read-through cache
func WithCache(next Provider, store archive.Storage, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, store: store, logger: logger}
}

func (c *Cached) Name() string {
	return c.next.Name()
}

func (c *Cached) GetHistoricalData(ctx context.Context, req Request) (*HistoricalData, error) {
	key := CacheKey(c.next.Name(), req)

	if ok, err := c.store.Exists(ctx, key); err == nil && ok {
		data, err := c.load(ctx, key)
		if err == nil {
			c.logger.Debug("bar cache hit", zap.String("key", key))
			return data, nil
		}
		c.logger.Warn("ignoring unreadable cache entry", zap.String("key", key), zap.Error(err))
	}

	data, err := c.next.GetHistoricalData(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data)
	if err == nil {
		err = c.store.Write(ctx, key, raw)
	}
	if err != nil {
		c.logger.Warn("caching bars failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}

func (c *Cached) load(ctx context.Context, key string) (*HistoricalData, error) {
	raw, err := c.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	var data HistoricalData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	if len(data.Bars) == 0 {
		return nil, fmt.Errorf("empty cache entry")
	}
	return &data, nil
}

// CacheKey is the archive path for a request
func CacheKey(provider string, req Request) string {
	symbol := strings.ToUpper(strings.ReplaceAll(req.Symbol, "/", "_"))
	return fmt.Sprintf("bars/%s/%s/%s/%s_%s_%d.json",
		provider,
		symbol,
		req.Timeframe,
		req.Start.UTC().Format("20060102"),
		req.End.UTC().Format("20060102"),
		req.Limit,
	)
}
