// Package builtin registers the predicates shipped with tradesim.
package builtin

import (
	"github.com/newthinker/tradesim/internal/strategy"
	"github.com/newthinker/tradesim/internal/strategy/breakout"
	"github.com/newthinker/tradesim/internal/strategy/ma_crossover"
)

// DefaultStrategy is used when the configuration names none
const DefaultStrategy = breakout.Name

// Registry returns a registry holding every built-in predicate
func Registry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(breakout.Name, breakout.New)
	r.Register(ma_crossover.Name, ma_crossover.New)
	return r
}
