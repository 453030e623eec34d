package breakout

import (
	"testing"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakout_ImplementsPredicate(t *testing.T) {
	var _ strategy.Predicate = (*Breakout)(nil)
}

func TestBreakout_ShouldEnter(t *testing.T) {
	p, err := New(strategy.Config{StopLossPct: 0.1, TakeProfitPct: 0.2})
	require.NoError(t, err)
	assert.Equal(t, Name, p.Name())

	tests := []struct {
		name string
		in   strategy.Input
		want bool
	}{
		{"no reference", strategy.Input{Price: 200}, false},
		{"above threshold", strategy.Input{Price: 102, Reference: 100, HasReference: true}, true},
		{"exactly threshold", strategy.Input{Price: 101, Reference: 100, HasReference: true}, false},
		{"exactly threshold low reference", strategy.Input{Price: 10.1, Reference: 10, HasReference: true}, false},
		{"exactly threshold mid reference", strategy.Input{Price: 50.5, Reference: 50, HasReference: true}, false},
		{"exactly threshold high reference", strategy.Input{Price: 202, Reference: 200, HasReference: true}, false},
		{"below average", strategy.Input{Price: 99, Reference: 100, HasReference: true}, false},
		{"zero reference", strategy.Input{Price: 99, HasReference: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldEnter(tt.in))
		})
	}
}

func TestBreakout_CustomThreshold(t *testing.T) {
	p, err := New(strategy.Config{Params: map[string]any{"threshold": 0.05}})
	require.NoError(t, err)

	in := strategy.Input{Price: 104, Reference: 100, HasReference: true}
	assert.False(t, p.ShouldEnter(in))
	in.Price = 106
	assert.True(t, p.ShouldEnter(in))
}

func TestBreakout_InvalidThreshold(t *testing.T) {
	_, err := New(strategy.Config{Params: map[string]any{"threshold": -0.5}})
	assert.Error(t, err)
}

func TestBreakout_ShouldExit(t *testing.T) {
	p, err := New(strategy.Config{StopLossPct: 0.10, TakeProfitPct: 0.20})
	require.NoError(t, err)
	pos := core.Position{Symbol: "AAPL", Quantity: 9, AvgEntryPrice: 100}

	assert.False(t, p.ShouldExit(strategy.Input{Price: 105}, pos))
	assert.True(t, p.ShouldExit(strategy.Input{Price: 85}, pos), "stop loss")
	assert.True(t, p.ShouldExit(strategy.Input{Price: 125}, pos), "take profit")
}
