package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/tradesim/internal/core"
)

// ValuationPolicy decides how positions outside the asset being simulated are marked.
type ValuationPolicy string

const (
	// LastTradePrice marks other positions at the price of their last trade.
	LastTradePrice ValuationPolicy = "last_trade_price"
	// CrossAssetRevaluation marks other positions at the close of their latest
	// already simulated bar at or before the current timestamp.
	CrossAssetRevaluation ValuationPolicy = "cross_asset_revaluation"
)

// ParseValuationPolicy accepts the config spelling; empty means LastTradePrice.
func ParseValuationPolicy(s string) (ValuationPolicy, error) {
	switch ValuationPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LastTradePrice:
		return LastTradePrice, nil
	case CrossAssetRevaluation:
		return CrossAssetRevaluation, nil
	default:
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown valuation policy %q", s))
	}
}

// closeAt finds the close of the latest bar at or before ts.
func closeAt(bars []core.Bar, ts time.Time) (float64, bool) {
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp.After(ts) })
	if i == 0 {
		return 0, false
	}
	return bars[i-1].Close, true
}
