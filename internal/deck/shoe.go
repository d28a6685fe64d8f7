package deck

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"slices"
)

// CardsPerDeck is the size of a single standard deck
const CardsPerDeck = 52

// ErrEmptyShoe is returned when drawing from a shoe with no cards left
var ErrEmptyShoe = errors.New("deck: shoe is empty")

// Build returns deckCount standard decks in suit/rank order, one card per
// (suit, rank) combination per deck.
func Build(deckCount int) []Card {
	cards := make([]Card, 0, deckCount*CardsPerDeck)
	for d := 0; d < deckCount; d++ {
		for suit := Clubs; suit <= Spades; suit++ {
			for rank := Ace; rank <= King; rank++ {
				cards = append(cards, NewCard(suit, rank))
			}
		}
	}
	return cards
}

// Shoe is the draw pile of one or more decks. Cards are drawn from the front.
type Shoe struct {
	cards []Card
	decks int
}

// NewShoe creates an unshuffled shoe of deckCount decks
func NewShoe(deckCount int) *Shoe {
	return &Shoe{cards: Build(deckCount), decks: deckCount}
}

// NewStackedShoe creates a shoe that deals exactly the given cards in order.
// The shoe still reports deckCount decks as its full size.
func NewStackedShoe(deckCount int, cards []Card) *Shoe {
	return &Shoe{cards: append([]Card(nil), cards...), decks: deckCount}
}

// Shuffle randomizes the undrawn cards using Fisher-Yates
func (s *Shoe) Shuffle(rng *rand.Rand) {
	for i := len(s.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
}

// Draw removes and returns the front card
func (s *Shoe) Draw() (Card, error) {
	if len(s.cards) == 0 {
		return Card{}, ErrEmptyShoe
	}
	card := s.cards[0]
	s.cards = s.cards[1:]
	return card, nil
}

// Remaining returns the number of undrawn cards
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// Decks returns the number of decks the shoe was built from
func (s *Shoe) Decks() int {
	return s.decks
}

// Size returns the number of cards in a full shoe
func (s *Shoe) Size() int {
	return s.decks * CardsPerDeck
}

// NeedsReshuffle reports whether fewer than fraction of a full shoe remains
func (s *Shoe) NeedsReshuffle(fraction float64) bool {
	return float64(s.Remaining()) < float64(s.Size())*fraction
}

// Cards returns a copy of the undrawn cards in draw order
func (s *Shoe) Cards() []Card {
	return append([]Card(nil), s.cards...)
}

// Clone returns an independent copy of the shoe
func (s *Shoe) Clone() *Shoe {
	if s == nil {
		return nil
	}
	return &Shoe{cards: slices.Clone(s.cards), decks: s.decks}
}

type shoeJSON struct {
	Decks int    `json:"decks"`
	Cards []Card `json:"cards"`
}

// MarshalJSON encodes the shoe including its undrawn cards
func (s *Shoe) MarshalJSON() ([]byte, error) {
	return json.Marshal(shoeJSON{Decks: s.decks, Cards: s.cards})
}

// UnmarshalJSON restores a shoe encoded by MarshalJSON
func (s *Shoe) UnmarshalJSON(data []byte) error {
	var v shoeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.decks = v.Decks
	s.cards = v.Cards
	return nil
}
