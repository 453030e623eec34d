// Package portfolio holds simulated cash and positions and replays bars against a strategy.
package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/tradesim/internal/core"
)

// EquityPoint is one portfolio valuation
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Value     float64   `json:"value" yaml:"value"`
}

// Portfolio is the cash and positions of one run. It is not safe for concurrent use.
type Portfolio struct {
	initialCapital float64
	cash           float64
	positions      map[string]core.Position
	lastPrice      map[string]float64
	equity         []EquityPoint
}

// New creates a portfolio holding only cash
func New(initialCapital float64) (*Portfolio, error) {
	if initialCapital <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial capital must be positive, got %f", initialCapital))
	}
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]core.Position),
		lastPrice:      make(map[string]float64),
	}, nil
}

func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }

func (p *Portfolio) Cash() float64 { return p.cash }

// Position returns the open position for symbol, if any.
func (p *Portfolio) Position(symbol string) (core.Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Positions returns open positions sorted by symbol
func (p *Portfolio) Positions() []core.Position {
	out := make([]core.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// LastTradePrice is the price of the most recent trade in symbol.
func (p *Portfolio) LastTradePrice(symbol string) (float64, bool) {
	price, ok := p.lastPrice[symbol]
	return price, ok
}

// Equity returns a copy of the recorded equity points in append order.
func (p *Portfolio) Equity() []EquityPoint {
	out := make([]EquityPoint, len(p.equity))
	copy(out, p.equity)
	return out
}

// Value is cash plus every position marked at mark(symbol).
func (p *Portfolio) Value(mark func(pos core.Position) float64) float64 {
	value := p.cash
	for _, pos := range p.positions {
		value += float64(pos.Quantity) * mark(pos)
	}
	return value
}

func (p *Portfolio) open(symbol string, qty int, price, cost float64) {
	p.cash -= cost
	p.positions[symbol] = core.Position{Symbol: symbol, Quantity: qty, AvgEntryPrice: price}
	p.lastPrice[symbol] = price
}

func (p *Portfolio) close(symbol string, price, proceeds float64) {
	p.cash += proceeds
	delete(p.positions, symbol)
	p.lastPrice[symbol] = price
}

func (p *Portfolio) record(ts time.Time, value float64) {
	p.equity = append(p.equity, EquityPoint{Timestamp: ts, Value: value})
}
