package strategy

import (
	"github.com/newthinker/tradesim/internal/core"
)

// Input is what the simulator knows about one asset at the current bar.
type Input struct {
	Symbol string
	Price  float64 // close of Bar
	// Reference is the trailing average of the preceding bars; valid only when HasReference.
	Reference    float64
	HasReference bool
	Bar          core.Bar
	History      []core.Bar // bars up to and including Bar, oldest first
}

// Predicate decides entries and exits for a single asset.
// ShouldEnter is only consulted while flat, ShouldExit only while holding.
type Predicate interface {
	Name() string
	ShouldEnter(in Input) bool
	ShouldExit(in Input, pos core.Position) bool
}
