package game

import (
	"slices"
	"strings"

	"github.com/lox/blackjack/internal/deck"
)

// Hand is an ordered run of cards. Values are computed on demand.
type Hand struct {
	Cards []deck.Card `json:"cards"`
}

// NewHand creates a hand holding the given cards
func NewHand(cards ...deck.Card) Hand {
	return Hand{Cards: append([]deck.Card(nil), cards...)}
}

// Add appends a card to the hand
func (h *Hand) Add(c deck.Card) {
	h.Cards = append(h.Cards, c)
}

// Len returns the number of cards held
func (h Hand) Len() int {
	return len(h.Cards)
}

// RawValue sums the cards counting every ace as 1
func (h Hand) RawValue() int {
	sum := 0
	for _, c := range h.Cards {
		sum += c.Value()
	}
	return sum
}

// BestValue counts aces as 1, then promotes each ace to 11 while the total
// stays at or below 21.
func (h Hand) BestValue() int {
	sum := h.RawValue()
	for _, c := range h.Cards {
		if c.IsAce() && sum+10 <= 21 {
			sum += 10
		}
	}
	return sum
}

// IsSoft reports whether an ace is currently counted as 11
func (h Hand) IsSoft() bool {
	return h.BestValue()-h.RawValue() >= 10
}

// IsBust reports whether the hand is over 21
func (h Hand) IsBust() bool {
	return h.BestValue() > 21
}

// IsBlackjack reports a two card 21. Only meaningful for an un-split hand.
func (h Hand) IsBlackjack() bool {
	return len(h.Cards) == 2 && h.BestValue() == 21
}

// IsPair reports whether the hand is exactly two cards of the same rank
func (h Hand) IsPair() bool {
	return len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank
}

// Clone returns a copy that shares no storage with h
func (h Hand) Clone() Hand {
	return Hand{Cards: slices.Clone(h.Cards)}
}

// String renders the cards, e.g. "A♠ K♥"
func (h Hand) String() string {
	parts := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
