package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/newthinker/tradesim/internal/config"
	"github.com/newthinker/tradesim/internal/logger"
	"github.com/newthinker/tradesim/internal/marketdata"
	"github.com/newthinker/tradesim/internal/marketdata/alpaca"
	"github.com/newthinker/tradesim/internal/marketdata/binance"
	"github.com/newthinker/tradesim/internal/marketdata/parquetfs"
	"github.com/newthinker/tradesim/internal/marketdata/yahoo"
	"github.com/newthinker/tradesim/internal/storage/archive"
)

// loadConfig reads --config when given, otherwise starts from defaults
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	log, err := logger.New(logger.Config{
		Development: cfg.Development || debug,
		Level:       cfg.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}
	return log, nil
}

// buildProvider assembles cache(retry(throttle(source))). The parquetfs source
// reads local files and is never throttled or retried.
func buildProvider(cfg *config.Config, log *zap.Logger) (marketdata.Provider, error) {
	var p marketdata.Provider

	switch cfg.Provider.Name {
	case "yahoo":
		opts := []yahoo.Option{
			yahoo.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Yahoo.Timeout}),
		}
		if cfg.Provider.Yahoo.BaseURL != "" {
			opts = append(opts, yahoo.WithBaseURL(cfg.Provider.Yahoo.BaseURL))
		}
		p = yahoo.New(opts...)
	case "alpaca":
		p = alpaca.New(alpaca.Config{
			APIKey:    cfg.Provider.Alpaca.APIKey,
			APISecret: cfg.Provider.Alpaca.APISecret,
			DataURL:   cfg.Provider.Alpaca.DataURL,
			Feed:      cfg.Provider.Alpaca.Feed,
		})
	case "binance":
		if cfg.Provider.Binance.BaseURL != "" {
			p = binance.NewWithBaseURL(cfg.Provider.Binance.BaseURL)
		} else {
			p = binance.New()
		}
	case "parquetfs":
		return parquetfs.New(cfg.Provider.Parquet.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}

	p = marketdata.WithRateLimit(p, cfg.Provider.RatePerMinute)
	if cfg.Provider.Retry.Attempts > 1 {
		p = marketdata.WithRetry(p, cfg.Provider.Retry.Attempts, cfg.Provider.Retry.BaseDelay, log)
	}

	if cfg.Cache.Enabled {
		store, err := archive.New(cfg.Cache.ToArchive())
		if err != nil {
			return nil, fmt.Errorf("creating bar cache: %w", err)
		}
		p = marketdata.WithCache(p, store, log)
	}

	log.Debug("market data provider ready", zap.String("provider", p.Name()))
	return p, nil
}
