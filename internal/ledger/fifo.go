package ledger

// NoLossProfitFactor is reported when there are winnings but no losses.
const NoLossProfitFactor = 999

// Attribution is the FIFO-matched realized P&L of a trade list.
// Losing values are stored as positive magnitudes.
type Attribution struct {
	TotalWinnings       float64   `json:"total_winnings" yaml:"total_winnings"`
	TotalLosses         float64   `json:"total_losses" yaml:"total_losses"`
	WinningTradeValues  []float64 `json:"winning_trade_values" yaml:"winning_trade_values"`
	LosingTradeValues   []float64 `json:"losing_trade_values" yaml:"losing_trade_values"`
	ProfitFactor        float64   `json:"profit_factor" yaml:"profit_factor"`
	AvgWinningTrade     float64   `json:"avg_winning_trade" yaml:"avg_winning_trade"`
	AvgLosingTrade      float64   `json:"avg_losing_trade" yaml:"avg_losing_trade"`
	LargestWinningTrade float64   `json:"largest_winning_trade" yaml:"largest_winning_trade"`
	LargestLosingTrade  float64   `json:"largest_losing_trade" yaml:"largest_losing_trade"`
	MatchedWinRate      float64   `json:"matched_win_rate" yaml:"matched_win_rate"`
}

type lot struct {
	quantity int
	price    float64
}

// Attribute groups trades by asset and consumes each sell against the oldest
// open buy lots. Every matched slice yields sellPrice*qty - buyPrice*qty; fees
// are not included. Sell quantity with no open lot is ignored.
func Attribute(trades []Trade) Attribution {
	var a Attribution
	open := make(map[string][]lot)

	for _, t := range trades {
		switch t.Type {
		case Buy:
			open[t.Asset] = append(open[t.Asset], lot{quantity: t.Quantity, price: t.Price})
		case Sell:
			remaining := t.Quantity
			lots := open[t.Asset]
			for remaining > 0 && len(lots) > 0 {
				matched := min(remaining, lots[0].quantity)
				pnl := float64(matched)*t.Price - float64(matched)*lots[0].price
				a.record(pnl)

				remaining -= matched
				lots[0].quantity -= matched
				if lots[0].quantity == 0 {
					lots = lots[1:]
				}
			}
			open[t.Asset] = lots
		}
	}

	a.summarize()
	return a
}

func (a *Attribution) record(pnl float64) {
	switch {
	case pnl > 0:
		a.TotalWinnings += pnl
		a.WinningTradeValues = append(a.WinningTradeValues, pnl)
	case pnl < 0:
		a.TotalLosses += -pnl
		a.LosingTradeValues = append(a.LosingTradeValues, -pnl)
	}
}

func (a *Attribution) summarize() {
	switch {
	case a.TotalLosses > 0:
		a.ProfitFactor = a.TotalWinnings / a.TotalLosses
	case a.TotalWinnings > 0:
		a.ProfitFactor = NoLossProfitFactor
	}

	a.AvgWinningTrade, a.LargestWinningTrade = meanMax(a.WinningTradeValues)
	a.AvgLosingTrade, a.LargestLosingTrade = meanMax(a.LosingTradeValues)

	if n := len(a.WinningTradeValues) + len(a.LosingTradeValues); n > 0 {
		a.MatchedWinRate = float64(len(a.WinningTradeValues)) / float64(n) * 100
	}
}

func meanMax(values []float64) (mean, largest float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
		if v > largest {
			largest = v
		}
	}
	return sum / float64(len(values)), largest
}
