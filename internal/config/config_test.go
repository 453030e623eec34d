package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func validConfig() *Config {
	cfg := Defaults()
	cfg.Run.Start = "2023-01-01"
	cfg.Run.End = "2023-12-31"
	cfg.Run.Assets = []string{"AAPL"}
	return cfg
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("TEST_ALPACA_SECRET", "s3cr3t")

	cfg, err := Load(writeConfig(t, `
run:
  start: "2023-01-01"
  end: "2023-06-30"
  initial_capital: 25000
  assets: [AAPL, MSFT]

strategy:
  name: ma_crossover
  stop_loss_pct: 0.1
  params:
    fast_period: 10
    ma_type: ema

provider:
  name: alpaca
  retry:
    base_delay: 2s
  alpaca:
    api_key: key
    api_secret: "${TEST_ALPACA_SECRET}"
`))
	require.NoError(t, err)

	assert.Equal(t, 25000.0, cfg.Run.InitialCapital)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Run.Assets)
	assert.Equal(t, "ma_crossover", cfg.Strategy.Name)
	assert.Equal(t, 0.1, cfg.Strategy.StopLossPct)
	assert.Equal(t, "ema", cfg.Strategy.Params["ma_type"])
	assert.Equal(t, "s3cr3t", cfg.Provider.Alpaca.APISecret)
	assert.Equal(t, 2*time.Second, cfg.Provider.Retry.BaseDelay)

	// untouched keys keep defaults
	assert.Equal(t, 3, cfg.Provider.Retry.Attempts)
	assert.Equal(t, "SPY", cfg.Run.Benchmark)
	assert.Equal(t, 0.10, cfg.Strategy.TakeProfitPct)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 100000.0, cfg.Run.InitialCapital)
	assert.Equal(t, 5, cfg.Simulator.Lookback)
	assert.Equal(t, "last_trade_price", cfg.Simulator.ValuationPolicy)
	assert.Equal(t, "approximate", cfg.Analysis.SortinoMode)
	assert.Equal(t, "yahoo", cfg.Provider.Name)
	assert.False(t, cfg.Cache.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{"valid config", func(*Config) {}, nil},
		{"missing start", func(c *Config) { c.Run.Start = "" }, core.ErrConfigMissing},
		{"bad date", func(c *Config) { c.Run.End = "31/12/2023" }, core.ErrConfigInvalid},
		{"end before start", func(c *Config) { c.Run.End = "2022-01-01" }, core.ErrConfigInvalid},
		{"rfc3339 dates", func(c *Config) { c.Run.Start = "2023-01-01T00:00:00Z" }, nil},
		{"zero capital", func(c *Config) { c.Run.InitialCapital = 0 }, core.ErrConfigInvalid},
		{"no assets", func(c *Config) { c.Run.Assets = nil }, core.ErrConfigMissing},
		{"bad timeframe", func(c *Config) { c.Run.Timeframe = "3d" }, core.ErrConfigInvalid},
		{"negative stop loss", func(c *Config) { c.Strategy.StopLossPct = -1 }, core.ErrConfigInvalid},
		{"unknown valuation", func(c *Config) { c.Simulator.ValuationPolicy = "mid" }, core.ErrConfigInvalid},
		{"unknown sortino", func(c *Config) { c.Analysis.SortinoMode = "exact" }, core.ErrConfigInvalid},
		{"unknown provider", func(c *Config) { c.Provider.Name = "polygon" }, core.ErrConfigInvalid},
		{"binance", func(c *Config) { c.Provider.Name = "binance" }, nil},
		{"alpaca without keys", func(c *Config) { c.Provider.Name = "alpaca" }, core.ErrConfigMissing},
		{"parquetfs without dir", func(c *Config) { c.Provider.Name = "parquetfs" }, core.ErrConfigMissing},
		{"s3 cache without bucket", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Type = "s3"
		}, core.ErrConfigMissing},
		{"negative concurrency", func(c *Config) { c.Fetch.Concurrency = -2 }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRunConfig_Dates(t *testing.T) {
	start, end, err := validConfig().Run.Dates()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestCacheConfig_ToArchive(t *testing.T) {
	c := CacheConfig{Type: "s3", S3: S3Config{Bucket: "bars", Prefix: "cache/"}}
	a := c.ToArchive()
	assert.Equal(t, "s3", a.Type)
	assert.Equal(t, "bars", a.S3.Bucket)
	assert.Equal(t, "cache/", a.S3.Prefix)
}
