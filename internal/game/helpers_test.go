package game

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bet25 = decimal.NewFromInt(25)

func hand(s string) Hand {
	return NewHand(deck.MustParseCards(s)...)
}

func newTestEngine(opts ...EngineOption) *Engine {
	return NewEngine(randutil.New(42), log.New(io.Discard), opts...)
}

// stackedRound seats players with the human at seat human and deals from
// exactly the given cards. Deal order is each seat then the dealer, twice.
func stackedRound(t *testing.T, e *Engine, players, human int, cards string, opts ...RoundOption) *Round {
	t.Helper()
	shoe := deck.NewStackedShoe(1, deck.MustParseCards(cards))
	opts = append([]RoundOption{WithShoe(shoe), WithHumanSeat(human)}, opts...)
	r, err := e.StartRound(DefaultRules(), players, opts...)
	require.NoError(t, err)
	return r
}

// dealtRound places a 25 bet for the human and deals
func dealtRound(t *testing.T, e *Engine, players, human int, cards string, opts ...RoundOption) *Round {
	t.Helper()
	r := stackedRound(t, e, players, human, cards, opts...)
	r, err := e.PlaceBet(r, human, bet25)
	require.NoError(t, err)
	r, err = e.Deal(r)
	require.NoError(t, err)
	return r
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), append([]any{"want %s, got %s", want, got}, msgAndArgs...)...)
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidOperation)
	got, ok := KindOf(err)
	require.True(t, ok, "expected an OperationError, got %T", err)
	assert.Equal(t, kind, got, "error: %v", err)
}
