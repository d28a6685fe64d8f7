package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Table limits
const (
	MaxPlayers = 7
	MaxDecks   = 8
)

// Rules holds the per-table settings a round is played under
type Rules struct {
	DeckCount         int             `json:"deck_count"`
	MinBet            decimal.Decimal `json:"min_bet"`
	StartingBalance   decimal.Decimal `json:"starting_balance"`
	DealerHitsSoft17  bool            `json:"dealer_hits_soft17"`
	ReshuffleFraction float64         `json:"reshuffle_fraction"`
}

// DefaultRules returns the house rules: one deck, 25 unit bets, 300 starting
// balance, dealer stands on soft 17 and reshuffles below 20%.
func DefaultRules() Rules {
	return Rules{
		DeckCount:         1,
		MinBet:            decimal.NewFromInt(25),
		StartingBalance:   decimal.NewFromInt(300),
		DealerHitsSoft17:  false,
		ReshuffleFraction: 0.2,
	}
}

// Validate checks the rules are playable
func (r Rules) Validate() error {
	if r.DeckCount < 1 || r.DeckCount > MaxDecks {
		return fmt.Errorf("deck count must be between 1 and %d, got %d", MaxDecks, r.DeckCount)
	}
	if !r.MinBet.IsPositive() {
		return fmt.Errorf("minimum bet must be positive, got %s", r.MinBet)
	}
	if r.StartingBalance.LessThan(r.MinBet) {
		return fmt.Errorf("starting balance %s is below the minimum bet %s", r.StartingBalance, r.MinBet)
	}
	if r.ReshuffleFraction < 0 || r.ReshuffleFraction >= 1 {
		return fmt.Errorf("reshuffle fraction must be in [0, 1), got %g", r.ReshuffleFraction)
	}
	return nil
}
