package ma_crossover

import (
	"fmt"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/indicator"
	"github.com/newthinker/tradesim/internal/strategy"
)

// Name is the registry key for this strategy
const Name = "ma_crossover"

// MACrossover enters on a golden cross and exits on a death cross or the risk band.
type MACrossover struct {
	cfg        strategy.Config
	fastPeriod int
	slowPeriod int
	useEMA     bool
}

// New builds the predicate. Params: "fast_period" (5), "slow_period" (20), "ma_type" (sma|ema).
func New(cfg strategy.Config) (strategy.Predicate, error) {
	fast, err := cfg.Int("fast_period", 5)
	if err != nil {
		return nil, err
	}
	slow, err := cfg.Int("slow_period", 20)
	if err != nil {
		return nil, err
	}
	if fast <= 0 || slow <= fast {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("need 0 < fast_period < slow_period, got %d/%d", fast, slow))
	}

	maType := cfg.String("ma_type", "sma")
	if maType != "sma" && maType != "ema" {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown ma_type %q", maType))
	}

	return &MACrossover{
		cfg:        cfg,
		fastPeriod: fast,
		slowPeriod: slow,
		useEMA:     maType == "ema",
	}, nil
}

func (m *MACrossover) Name() string {
	return Name
}

func (m *MACrossover) ShouldEnter(in strategy.Input) bool {
	prevFast, prevSlow, currFast, currSlow, ok := m.averages(in.History)
	if !ok {
		return false
	}
	return prevFast <= prevSlow && currFast > currSlow
}

func (m *MACrossover) ShouldExit(in strategy.Input, pos core.Position) bool {
	if strategy.RiskExit(m.cfg, in.Price, pos) {
		return true
	}
	prevFast, prevSlow, currFast, currSlow, ok := m.averages(in.History)
	if !ok {
		return false
	}
	return prevFast >= prevSlow && currFast < currSlow
}

// averages returns the last two fast and slow averages
func (m *MACrossover) averages(history []core.Bar) (prevFast, prevSlow, currFast, currSlow float64, ok bool) {
	if len(history) < m.slowPeriod+1 {
		return 0, 0, 0, 0, false
	}

	prices := core.Closes(history[len(history)-m.slowPeriod-1:])
	avg := indicator.SMA
	if m.useEMA {
		avg = indicator.EMA
	}
	fast := avg(prices, m.fastPeriod)
	slow := avg(prices, m.slowPeriod)
	if len(fast) < 2 || len(slow) < 2 {
		return 0, 0, 0, 0, false
	}

	return fast[len(fast)-2], slow[len(slow)-2], fast[len(fast)-1], slow[len(slow)-1], true
}
