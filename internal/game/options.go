package game

import (
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/gameid"
	"github.com/shopspring/decimal"
)

// EngineOption configures an Engine during creation.
type EngineOption func(*Engine)

// WithStrategy replaces the decision procedure used for computer seats
func WithStrategy(s Strategy) EngineOption {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithRoundIDs sets the generator used for round ids
func WithRoundIDs(g *gameid.Generator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// RoundOption configures a round created by StartRound.
type RoundOption func(*roundConfig)

type roundConfig struct {
	shoe      *deck.Shoe        // If nil, a freshly shuffled shoe is built
	humanSeat int               // Negative picks a random seat
	balances  []decimal.Decimal // If nil, every seat gets the starting balance
}

// WithShoe deals from the given shoe instead of building a new one.
// Combined with deck.NewStackedShoe this makes rounds fully deterministic.
func WithShoe(shoe *deck.Shoe) RoundOption {
	return func(c *roundConfig) {
		c.shoe = shoe
	}
}

// WithHumanSeat fixes the human player's seat
func WithHumanSeat(seat int) RoundOption {
	return func(c *roundConfig) {
		c.humanSeat = seat
	}
}

// WithBalances sets per-seat starting balances
func WithBalances(balances ...decimal.Decimal) RoundOption {
	return func(c *roundConfig) {
		c.balances = balances
	}
}
