package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/performance"
	"github.com/newthinker/tradesim/internal/portfolio"
	"github.com/newthinker/tradesim/internal/storage/archive"
	"github.com/newthinker/tradesim/internal/strategy"
)

// DateLayout is the accepted format for run dates
const DateLayout = "2006-01-02"

type Config struct {
	Run       RunConfig       `mapstructure:"run"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// RunConfig holds the parameters of one backtest
type RunConfig struct {
	Start          string   `mapstructure:"start"` // YYYY-MM-DD
	End            string   `mapstructure:"end"`
	InitialCapital float64  `mapstructure:"initial_capital"`
	Assets         []string `mapstructure:"assets"`
	Timeframe      string   `mapstructure:"timeframe"`
	Limit          int      `mapstructure:"limit"`
	Benchmark      string   `mapstructure:"benchmark"`
}

type StrategyConfig struct {
	Name          string         `mapstructure:"name"`
	StopLossPct   float64        `mapstructure:"stop_loss_pct"`
	TakeProfitPct float64        `mapstructure:"take_profit_pct"`
	Params        map[string]any `mapstructure:"params"`
}

type SimulatorConfig struct {
	Lookback        int    `mapstructure:"lookback"`
	ValuationPolicy string `mapstructure:"valuation_policy"`
}

type AnalysisConfig struct {
	SortinoMode string `mapstructure:"sortino_mode"`
}

// ProviderConfig selects the market data source and its decorators.
type ProviderConfig struct {
	Name          string        `mapstructure:"name"` // yahoo, alpaca, binance or parquetfs
	Retry         RetryConfig   `mapstructure:"retry"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	Yahoo         YahooConfig   `mapstructure:"yahoo"`
	Alpaca        AlpacaConfig  `mapstructure:"alpaca"`
	Binance       BinanceConfig `mapstructure:"binance"`
	Parquet       ParquetConfig `mapstructure:"parquetfs"`
}

type BinanceConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
}

type YahooConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AlpacaConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	DataURL   string `mapstructure:"data_url"`
	Feed      string `mapstructure:"feed"`
}

type ParquetConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// CacheConfig holds the bar cache backend
type CacheConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// FetchConfig controls bar prefetching. Concurrency <= 1 fetches sequentially.
type FetchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("TRADESIM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Run: RunConfig{
			InitialCapital: 100000,
			Timeframe:      string(core.TimeframeDay),
			Benchmark:      "SPY",
		},
		Strategy: StrategyConfig{
			Name:          "trailing_breakout",
			StopLossPct:   0.05,
			TakeProfitPct: 0.10,
		},
		Simulator: SimulatorConfig{
			Lookback:        portfolio.DefaultLookback,
			ValuationPolicy: string(portfolio.LastTradePrice),
		},
		Analysis: AnalysisConfig{
			SortinoMode: string(performance.SortinoApproximate),
		},
		Provider: ProviderConfig{
			Name: "yahoo",
			Retry: RetryConfig{
				Attempts:  3,
				BaseDelay: 500 * time.Millisecond,
			},
			RatePerMinute: 60,
			Yahoo: YahooConfig{
				Timeout: 10 * time.Second,
			},
		},
		Cache: CacheConfig{
			Type: "localfs",
			Path: ".tradesim/cache",
		},
		Fetch: FetchConfig{
			Concurrency: 1,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Run validation
	start, end, err := c.Run.Dates()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end date %s must be after start date %s", c.Run.End, c.Run.Start))
	}
	if c.Run.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Run.InitialCapital))
	}
	if len(c.Run.Assets) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("at least one asset required"))
	}
	if _, err := core.ParseTimeframe(c.Run.Timeframe); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if c.Run.Limit < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("limit cannot be negative, got %d", c.Run.Limit))
	}

	// Strategy and engine validation
	if c.Strategy.Name == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("strategy name required"))
	}
	if err := c.Strategy.ToStrategy().Validate(); err != nil {
		return err
	}
	if c.Simulator.Lookback < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback cannot be negative, got %d", c.Simulator.Lookback))
	}
	if _, err := portfolio.ParseValuationPolicy(c.Simulator.ValuationPolicy); err != nil {
		return err
	}
	if _, err := performance.ParseSortinoMode(c.Analysis.SortinoMode); err != nil {
		return err
	}

	// Provider validation
	switch c.Provider.Name {
	case "yahoo", "binance":
	case "alpaca":
		if c.Provider.Alpaca.APIKey == "" || c.Provider.Alpaca.APISecret == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("alpaca api_key and api_secret required when provider is alpaca"))
		}
	case "parquetfs":
		if c.Provider.Parquet.DataDir == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("parquetfs data_dir required when provider is parquetfs"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown provider %q", c.Provider.Name))
	}
	if c.Provider.Retry.Attempts < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("retry attempts cannot be negative, got %d", c.Provider.Retry.Attempts))
	}
	if c.Provider.RatePerMinute < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rate_per_minute cannot be negative, got %d", c.Provider.RatePerMinute))
	}

	// Cache validation
	if c.Cache.Enabled {
		switch c.Cache.Type {
		case "", "localfs":
			if c.Cache.Path == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("cache path required for localfs"))
			}
		case "s3":
			if c.Cache.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("cache s3 bucket required"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown cache type %q", c.Cache.Type))
		}
	}

	if c.Fetch.Concurrency < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fetch concurrency cannot be negative, got %d", c.Fetch.Concurrency))
	}

	return nil
}

// Dates parses the run's start and end dates
func (r RunConfig) Dates() (start, end time.Time, err error) {
	start, err = parseDate("start", r.Start)
	if err != nil {
		return start, end, err
	}
	end, err = parseDate("end", r.End)
	return start, end, err
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, core.WrapError(core.ErrConfigMissing, fmt.Errorf("run %s date required", field))
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("run %s date %q: want %s", field, s, DateLayout))
	}
	return t.UTC(), nil
}

// ToStrategy converts to the engine's strategy configuration
func (s StrategyConfig) ToStrategy() strategy.Config {
	return strategy.Config{
		StopLossPct:   s.StopLossPct,
		TakeProfitPct: s.TakeProfitPct,
		Params:        s.Params,
	}
}

// ToArchive converts to the storage factory configuration
func (c CacheConfig) ToArchive() archive.Config {
	return archive.Config{
		Type: c.Type,
		Path: c.Path,
		S3: archive.S3Config{
			Bucket:    c.S3.Bucket,
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Prefix:    c.S3.Prefix,
		},
	}
}
