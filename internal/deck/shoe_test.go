package deck

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countCards(cards []Card) map[Card]int {
	counts := make(map[Card]int)
	for _, c := range cards {
		counts[c]++
	}
	return counts
}

func TestBuild(t *testing.T) {
	for _, decks := range []int{1, 2, 6} {
		cards := Build(decks)
		require.Len(t, cards, decks*CardsPerDeck)

		counts := countCards(cards)
		assert.Len(t, counts, CardsPerDeck)
		for card, n := range counts {
			assert.Equal(t, decks, n, "card %s", card)
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	shoe := NewShoe(2)
	before := countCards(shoe.Cards())

	shoe.Shuffle(rng)

	assert.Equal(t, before, countCards(shoe.Cards()))
	assert.NotEqual(t, Build(2), shoe.Cards(), "shuffle should reorder the shoe")
}

// TestShuffleIsUniform counts which card lands in every position and runs a
// chi-square test per position and over the whole position x card table.
func TestShuffleIsUniform(t *testing.T) {
	const trials = 20000
	rng := rand.New(rand.NewPCG(42, 7))
	index := make(map[Card]int, CardsPerDeck)
	for i, c := range Build(1) {
		index[c] = i
	}

	var counts [CardsPerDeck][CardsPerDeck]int
	for i := 0; i < trials; i++ {
		shoe := NewShoe(1)
		shoe.Shuffle(rng)
		for pos, c := range shoe.Cards() {
			counts[pos][index[c]]++
		}
	}

	expected := float64(trials) / CardsPerDeck
	rowDF := float64(CardsPerDeck - 1)
	total := 0.0
	for pos := range counts {
		row := 0.0
		for _, n := range counts[pos] {
			d := float64(n) - expected
			row += d * d / expected
		}
		// chi-square with df degrees of freedom has mean df and variance 2 df
		assert.Less(t, row, rowDF+6*math.Sqrt(2*rowDF), "position %d", pos)
		total += row
	}

	df := rowDF * rowDF
	assert.Less(t, total, df+6*math.Sqrt(2*df), "position x card table")
	assert.Greater(t, total, df-6*math.Sqrt(2*df), "shuffle looks too regular")
}

func TestDrawDepletesShoe(t *testing.T) {
	shoe := NewStackedShoe(1, MustParseCards("As2h"))
	assert.Equal(t, 2, shoe.Remaining())
	assert.Equal(t, 52, shoe.Size())

	c, err := shoe.Draw()
	require.NoError(t, err)
	assert.Equal(t, NewCard(Spades, Ace), c)

	c, err = shoe.Draw()
	require.NoError(t, err)
	assert.Equal(t, NewCard(Hearts, Two), c)

	_, err = shoe.Draw()
	assert.True(t, errors.Is(err, ErrEmptyShoe))
	assert.Equal(t, 0, shoe.Remaining())
}

func TestNeedsReshuffle(t *testing.T) {
	shoe := NewShoe(1)
	assert.False(t, shoe.NeedsReshuffle(0.2))

	for shoe.Remaining() > 11 {
		_, err := shoe.Draw()
		require.NoError(t, err)
	}
	assert.False(t, shoe.NeedsReshuffle(0.2), "11 of 52 is above 20%%")

	_, err := shoe.Draw()
	require.NoError(t, err)
	assert.True(t, shoe.NeedsReshuffle(0.2), "10 of 52 is below 20%%")
}

func TestCloneIsIndependent(t *testing.T) {
	shoe := NewStackedShoe(1, MustParseCards("As2h3d"))
	clone := shoe.Clone()

	_, err := clone.Draw()
	require.NoError(t, err)

	assert.Equal(t, 3, shoe.Remaining())
	assert.Equal(t, 2, clone.Remaining())
}

func TestShoeJSON(t *testing.T) {
	shoe := NewStackedShoe(3, MustParseCards("AsKd"))
	data, err := json.Marshal(shoe)
	require.NoError(t, err)

	var restored Shoe
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, 3, restored.Decks())
	assert.Equal(t, shoe.Cards(), restored.Cards())
}
