package portfolio

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/indicator"
	"github.com/newthinker/tradesim/internal/ledger"
	"github.com/newthinker/tradesim/internal/strategy"
)

// Fixed economics of the simulator
const (
	FeeRate          = 0.001 // fraction of gross trade value
	PositionFraction = 0.10  // fraction of portfolio value allocated per entry
	MinOrderCash     = 1000.0
	DefaultLookback  = 5
)

// Options configures a Simulator
type Options struct {
	Lookback  int // bars in the trailing reference window, DefaultLookback when <= 0
	Valuation ValuationPolicy
	Logger    *zap.Logger
}

// AssetResult summarizes one RunAsset call
type AssetResult struct {
	Symbol string
	Bars   int
	Buys   int
	Sells  int
}

// Simulator replays bars one asset at a time against a single portfolio and ledger.
type Simulator struct {
	portfolio *Portfolio
	ledger    *ledger.Ledger
	predicate strategy.Predicate
	lookback  int
	valuation ValuationPolicy
	logger    *zap.Logger

	simulated map[string][]core.Bar // bars of assets already replayed
}

// NewSimulator creates a simulator over p and l
func NewSimulator(p *Portfolio, l *ledger.Ledger, predicate strategy.Predicate, opts Options) *Simulator {
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.Valuation == "" {
		opts.Valuation = LastTradePrice
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Simulator{
		portfolio: p,
		ledger:    l,
		predicate: predicate,
		lookback:  opts.Lookback,
		valuation: opts.Valuation,
		logger:    opts.Logger,
		simulated: make(map[string][]core.Bar),
	}
}

// RunAsset replays bars for symbol in order. Each bar appends exactly one equity point.
// Entry is only evaluated while flat and exit only while holding, so a bar never both
// opens and closes a position. The context is checked before every bar.
func (s *Simulator) RunAsset(ctx context.Context, symbol string, bars []core.Bar) (AssetResult, error) {
	symbol = strings.ToUpper(symbol)
	res := AssetResult{Symbol: symbol}
	closes := core.Closes(bars)

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		in := strategy.Input{
			Symbol:  symbol,
			Price:   bar.Close,
			Bar:     bar,
			History: bars[:i+1],
		}
		in.Reference, in.HasReference = indicator.TrailingMean(closes[:i], s.lookback)

		value := s.valueAt(symbol, bar)

		if pos, holding := s.portfolio.Position(symbol); holding {
			if s.predicate.ShouldExit(in, pos) {
				s.sell(pos, bar)
				res.Sells++
			}
		} else if s.predicate.ShouldEnter(in) {
			if s.buy(symbol, bar, value) {
				res.Buys++
			}
		}

		s.portfolio.record(bar.Timestamp, s.valueAt(symbol, bar))
		res.Bars++
	}

	s.simulated[symbol] = bars
	return res, nil
}

func (s *Simulator) buy(symbol string, bar core.Bar, portfolioValue float64) bool {
	price := bar.Close
	orderCash := math.Min(portfolioValue*PositionFraction, s.portfolio.Cash())
	if orderCash < MinOrderCash {
		s.logger.Debug("entry skipped, order below minimum",
			zap.String("symbol", symbol),
			zap.Float64("order_cash", orderCash),
		)
		return false
	}

	qty := int(math.Floor(orderCash / price))
	// fees come out of cash on top of the notional
	if maxQty := int(math.Floor(s.portfolio.Cash() / (price * (1 + FeeRate)))); qty > maxQty {
		qty = maxQty
	}
	gross := float64(qty) * price
	fees := gross * FeeRate
	// the debit is summed differently from the cap above and can round past cash
	for qty > 0 && gross+fees > s.portfolio.Cash() {
		qty--
		gross = float64(qty) * price
		fees = gross * FeeRate
	}
	if qty <= 0 {
		return false
	}

	s.portfolio.open(symbol, qty, price, gross+fees)
	s.ledger.Append(ledger.Trade{
		Timestamp:  bar.Timestamp,
		Type:       ledger.Buy,
		Asset:      symbol,
		Quantity:   qty,
		Price:      price,
		GrossValue: gross,
		Fees:       fees,
	})

	s.logger.Debug("buy",
		zap.String("symbol", symbol),
		zap.Int("quantity", qty),
		zap.Float64("price", price),
		zap.Time("at", bar.Timestamp),
	)
	return true
}

func (s *Simulator) sell(pos core.Position, bar core.Bar) {
	price := bar.Close
	gross := float64(pos.Quantity) * price
	fees := gross * FeeRate
	s.portfolio.close(pos.Symbol, price, gross-fees)
	s.ledger.Append(ledger.Trade{
		Timestamp:  bar.Timestamp,
		Type:       ledger.Sell,
		Asset:      pos.Symbol,
		Quantity:   pos.Quantity,
		Price:      price,
		GrossValue: gross,
		Fees:       fees,
	})

	s.logger.Debug("sell",
		zap.String("symbol", pos.Symbol),
		zap.Int("quantity", pos.Quantity),
		zap.Float64("price", price),
		zap.Float64("return", pos.UnrealizedReturn(price)),
		zap.Time("at", bar.Timestamp),
	)
}

// valueAt marks the current asset at the bar close and every other position per the policy.
func (s *Simulator) valueAt(symbol string, bar core.Bar) float64 {
	return s.portfolio.Value(func(pos core.Position) float64 {
		if pos.Symbol == symbol {
			return bar.Close
		}
		if s.valuation == CrossAssetRevaluation {
			if price, ok := closeAt(s.simulated[pos.Symbol], bar.Timestamp); ok {
				return price
			}
		}
		if price, ok := s.portfolio.LastTradePrice(pos.Symbol); ok {
			return price
		}
		return pos.AvgEntryPrice
	})
}
