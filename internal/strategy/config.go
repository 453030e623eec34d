package strategy

import (
	"fmt"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/spf13/cast"
)

// Config holds the immutable strategy configuration
type Config struct {
	StopLossPct   float64
	TakeProfitPct float64
	Params        map[string]any
}

// Validate rejects negative risk thresholds
func (c Config) Validate() error {
	if c.StopLossPct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("stop_loss_pct cannot be negative, got %f", c.StopLossPct))
	}
	if c.TakeProfitPct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("take_profit_pct cannot be negative, got %f", c.TakeProfitPct))
	}
	return nil
}

// Float reads a numeric parameter, falling back to def when absent.
func (c Config) Float(key string, def float64) (float64, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("param %s: %w", key, err))
	}
	return f, nil
}

// Int reads an integer parameter, falling back to def when absent.
func (c Config) Int(key string, def int) (int, error) {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return def, nil
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("param %s: %w", key, err))
	}
	return i, nil
}

// String reads a string parameter, falling back to def when absent.
func (c Config) String(key, def string) string {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return def
	}
	return cast.ToString(v)
}

// RiskExit reports whether price breaches the stop-loss or take-profit band
// around the position's average entry price.
func RiskExit(cfg Config, price float64, pos core.Position) bool {
	if pos.AvgEntryPrice <= 0 {
		return false
	}
	change := pos.UnrealizedReturn(price)
	return change < -cfg.StopLossPct || change > cfg.TakeProfitPct
}
