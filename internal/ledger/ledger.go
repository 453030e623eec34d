// Package ledger records executed trades and attributes realized P&L by FIFO matching.
package ledger

import (
	"time"
)

// Side is the direction of a trade
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Trade is one executed order. Trades are never mutated once recorded.
type Trade struct {
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Type       Side      `json:"type" yaml:"type"`
	Asset      string    `json:"asset" yaml:"asset"`
	Quantity   int       `json:"quantity" yaml:"quantity"`
	Price      float64   `json:"price" yaml:"price"`
	GrossValue float64   `json:"gross_value" yaml:"gross_value"`
	Fees       float64   `json:"fees" yaml:"fees"`
}

// Ledger is an append-only trade log owned by a single run.
type Ledger struct {
	trades []Trade
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{}
}

// Append records a trade
func (l *Ledger) Append(t Trade) {
	l.trades = append(l.trades, t)
}

// Len returns the number of recorded trades
func (l *Ledger) Len() int {
	return len(l.trades)
}

// Trades returns a copy of the recorded trades in execution order.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// TotalFees sums fees across all trades
func (l *Ledger) TotalFees() float64 {
	var total float64
	for _, t := range l.trades {
		total += t.Fees
	}
	return total
}

// CountBySide returns the number of buys and sells
func (l *Ledger) CountBySide() (buys, sells int) {
	for _, t := range l.trades {
		switch t.Type {
		case Buy:
			buys++
		case Sell:
			sells++
		}
	}
	return buys, sells
}
