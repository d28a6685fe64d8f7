package game

import (
	"github.com/lox/blackjack/internal/deck"
)

// Phase is the stage of a round. It is derived from the round's fields,
// never stored.
type Phase int

const (
	Betting Phase = iota
	PlayerTurns
	DealerTurn
	Settled
)

func (p Phase) String() string {
	switch p {
	case Betting:
		return "betting"
	case PlayerTurns:
		return "player-turns"
	case DealerTurn:
		return "dealer-turn"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Round is the complete state of one round at a table. The Engine is the
// only thing that mutates it, and always on a copy.
type Round struct {
	ID            string     `json:"id"`
	Rules         Rules      `json:"rules"`
	Shoe          *deck.Shoe `json:"shoe"`
	Dealer        Hand       `json:"dealer"`
	Players       []*Player  `json:"players"`
	CurrentPlayer int        `json:"current_player"`
	DealerTurn    bool       `json:"dealer_turn"`
}

// Dealt reports whether the initial cards have gone out
func (r *Round) Dealt() bool {
	return r.Dealer.Len() > 0
}

// IsOver reports whether every hand is finished: the cursor is past the last
// player and the dealer is not drawing.
func (r *Round) IsOver() bool {
	return r.CurrentPlayer >= len(r.Players) && !r.DealerTurn
}

// IsPlayerTurn reports whether a seated player is due to act
func (r *Round) IsPlayerTurn() bool {
	return r.Dealt() && !r.DealerTurn && r.CurrentPlayer < len(r.Players)
}

// Phase reconstructs the stage of the round
func (r *Round) Phase() Phase {
	switch {
	case !r.Dealt():
		return Betting
	case r.DealerTurn:
		return DealerTurn
	case r.IsOver():
		return Settled
	default:
		return PlayerTurns
	}
}

// Current returns the player whose turn it is, or nil
func (r *Round) Current() *Player {
	if r.CurrentPlayer < 0 || r.CurrentPlayer >= len(r.Players) {
		return nil
	}
	return r.Players[r.CurrentPlayer]
}

// Player looks a seat up by id
func (r *Round) Player(id int) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Human returns the human seat, or nil if none remains
func (r *Round) Human() *Player {
	for _, p := range r.Players {
		if p.Human {
			return p
		}
	}
	return nil
}

// DealerUpCard returns the dealer's visible card value (ace counts 1)
func (r *Round) DealerUpCard() int {
	if r.Dealer.Len() == 0 {
		return 0
	}
	return r.Dealer.Cards[0].Value()
}

// CanDouble reports whether the given player may double the active hand now
func (r *Round) CanDouble(playerID int) bool {
	p, ph := r.activeHandOf(playerID)
	if ph == nil {
		return false
	}
	return ph.Hand.Len() == 2 && !ph.Doubled && p.CanAfford(ph.Bet)
}

// CanSplit reports whether the given player may split the active hand now
func (r *Round) CanSplit(playerID int) bool {
	p, ph := r.activeHandOf(playerID)
	if ph == nil {
		return false
	}
	return ph.Hand.IsPair() && p.CanAfford(ph.Bet)
}

func (r *Round) activeHandOf(playerID int) (*Player, *PlayerHand) {
	if !r.IsPlayerTurn() {
		return nil, nil
	}
	p := r.Current()
	if p.ID != playerID {
		return nil, nil
	}
	return p, p.Active()
}

// OverallWinner summarises the first seat's hands: "dealer" if all lost,
// "player" if all won, "push" if all pushed, "" otherwise.
func (r *Round) OverallWinner() string {
	if len(r.Players) == 0 {
		return ""
	}
	var winner string
	for i, ph := range r.Players[0].Hands {
		w := ph.Result.Winner()
		if w == "" {
			return ""
		}
		if i > 0 && w != winner {
			return ""
		}
		winner = w
	}
	return winner
}

// Clone returns a deep copy of the round
func (r *Round) Clone() *Round {
	c := *r
	c.Shoe = r.Shoe.Clone()
	c.Dealer = r.Dealer.Clone()
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		c.Players[i] = p.Clone()
	}
	return &c
}

// eachHand calls fn for every player hand in seat order
func (r *Round) eachHand(fn func(p *Player, ph *PlayerHand)) {
	for _, p := range r.Players {
		for _, ph := range p.Hands {
			fn(p, ph)
		}
	}
}

// seek moves the cursor forward to the first player with a hand left to
// play. Running off the end hands the turn to the dealer.
func (r *Round) seek() {
	for r.CurrentPlayer < len(r.Players) {
		if !r.Players[r.CurrentPlayer].Done() {
			return
		}
		r.CurrentPlayer++
	}
	r.DealerTurn = true
}
