package breakout

import (
	"fmt"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/strategy"
)

// Name is the registry key for this strategy
const Name = "trailing_breakout"

// DefaultThreshold is the fractional lift over the trailing average required to enter
const DefaultThreshold = 0.01

// Breakout enters when price clears its trailing average by more than a threshold
// and exits on the stop-loss / take-profit band.
type Breakout struct {
	cfg       strategy.Config
	threshold float64
}

// New builds the predicate. Params: "threshold" (fraction, default 0.01).
func New(cfg strategy.Config) (strategy.Predicate, error) {
	threshold, err := cfg.Float("threshold", DefaultThreshold)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("threshold cannot be negative, got %f", threshold))
	}
	return &Breakout{cfg: cfg, threshold: threshold}, nil
}

func (b *Breakout) Name() string {
	return Name
}

func (b *Breakout) ShouldEnter(in strategy.Input) bool {
	if !in.HasReference || in.Reference <= 0 {
		return false
	}
	// multiplicative form keeps a price exactly at the threshold out
	return in.Price > in.Reference*(1+b.threshold)
}

func (b *Breakout) ShouldExit(in strategy.Input, pos core.Position) bool {
	return strategy.RiskExit(b.cfg, in.Price, pos)
}
