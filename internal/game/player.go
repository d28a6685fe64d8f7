package game

import (
	"github.com/shopspring/decimal"
)

// PlayerHand is one betting spot: the cards, the stake riding on them and
// the outcome. A player holds one per hand, so the per-hand data can never
// drift out of step.
type PlayerHand struct {
	Hand    Hand            `json:"hand"`
	Bet     decimal.Decimal `json:"bet"`
	Doubled bool            `json:"doubled"`
	Split   bool            `json:"split"`
	Result  Result          `json:"result"`
	Payout  decimal.Decimal `json:"payout"`
}

// IsNatural reports a two card 21 on a hand that was never split
func (ph *PlayerHand) IsNatural() bool {
	return !ph.Split && ph.Hand.IsBlackjack()
}

func (ph *PlayerHand) clone() *PlayerHand {
	c := *ph
	c.Hand = ph.Hand.Clone()
	return &c
}

// Player is a seat at the table
type Player struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Human   bool            `json:"human"`
	Balance decimal.Decimal `json:"balance"`
	Hands   []*PlayerHand   `json:"hands"`
	// CurrentHand indexes Hands; it equals len(Hands) once the player is done.
	CurrentHand int `json:"current_hand"`
}

// NewPlayer creates a seat with a single empty hand
func NewPlayer(id int, name string, human bool, balance decimal.Decimal) *Player {
	return &Player{
		ID:      id,
		Name:    name,
		Human:   human,
		Balance: balance,
		Hands:   []*PlayerHand{{}},
	}
}

// CurrentBet returns the stake placed before the deal
func (p *Player) CurrentBet() decimal.Decimal {
	return p.Hands[0].Bet
}

// Active returns the hand being played, or nil once the player is done
func (p *Player) Active() *PlayerHand {
	if p.Done() {
		return nil
	}
	return p.Hands[p.CurrentHand]
}

// Done reports whether every hand of this player has been played
func (p *Player) Done() bool {
	return p.CurrentHand >= len(p.Hands)
}

// HasSplit reports whether the player split this round
func (p *Player) HasSplit() bool {
	return len(p.Hands) > 1
}

// CanAfford reports whether the balance covers amount
func (p *Player) CanAfford(amount decimal.Decimal) bool {
	return p.Balance.GreaterThanOrEqual(amount)
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	c := *p
	c.Hands = make([]*PlayerHand, len(p.Hands))
	for i, h := range p.Hands {
		c.Hands[i] = h.clone()
	}
	return &c
}
