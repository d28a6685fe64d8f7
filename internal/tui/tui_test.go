package tui

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    Command
		wantErr bool
	}{
		{input: "bet 25", want: Command{Name: "bet", Amount: decimal.NewFromInt(25)}},
		{input: "  BET $50 ", want: Command{Name: "bet", Amount: decimal.NewFromInt(50)}},
		{input: "deal", want: Command{Name: "deal"}},
		{input: "h", want: Command{Name: "action", Action: game.Hit}},
		{input: "stand", want: Command{Name: "action", Action: game.Stand}},
		{input: "double", want: Command{Name: "action", Action: game.Double}},
		{input: "p", want: Command{Name: "action", Action: game.Split}},
		{input: "new", want: Command{Name: "new"}},
		{input: "q", want: Command{Name: "quit"}},
		{input: "help", want: Command{Name: "help"}},
		{input: "bet", wantErr: true},
		{input: "bet lots", wantErr: true},
		{input: "surrender", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Action, got.Action)
			assert.True(t, tt.want.Amount.Equal(got.Amount), "amount %s", got.Amount)
		})
	}
}

func TestFormatCards(t *testing.T) {
	cards := deck.MustParseCards("AhKs")

	shown := FormatCards(cards, false)
	assert.Contains(t, shown, "A♥")
	assert.Contains(t, shown, "K♠")

	hidden := FormatCards(cards, true)
	assert.Contains(t, hidden, "A♥")
	assert.Contains(t, hidden, "??")
	assert.NotContains(t, hidden, "K♠")
}

// newTestModel seats the human alone at a table dealing exactly cards
func newTestModel(t *testing.T, cards string) *Model {
	t.Helper()
	logger := log.New(io.Discard)
	engine := game.NewEngine(randutil.New(1), logger)
	manager := session.NewManager(session.NewMemoryStore(), engine, game.DefaultRules(), logger)

	shoe := deck.NewStackedShoe(1, deck.MustParseCards(cards))
	rec, err := manager.Start(context.Background(), 1, 1, game.WithShoe(shoe), game.WithHumanSeat(0))
	require.NoError(t, err)

	m := New(context.Background(), manager, rec.ID, logger)
	cmd := m.Init()
	require.NotNil(t, cmd)
	m.Update(m.fetch()())
	require.NotNil(t, m.Round())
	return m
}

// enter types line and runs whatever command it produces to completion
func enter(t *testing.T, m *Model, line string) tea.Msg {
	t.Helper()
	m.input.SetValue(line)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return nil
	}
	msg := cmd()
	m.Update(msg)
	return msg
}

func logContains(m *Model, substr string) bool {
	for _, line := range m.Log() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestModelPlaysRound(t *testing.T) {
	m := newTestModel(t, "Th6c7d9s6h")
	assert.True(t, logContains(m, "Seated as You with 300"))

	enter(t, m, "bet 25")
	assert.Equal(t, "25", m.Round().Human().CurrentBet().String())
	assert.Equal(t, []string{"[bet N]", "[deal]"}, m.availableActions())

	enter(t, m, "deal")
	assert.Equal(t, game.PlayerTurns, m.Round().Phase())
	assert.True(t, logContains(m, "Dealer shows"))
	assert.Equal(t, []string{"[hit]", "[stand]", "[double]"}, m.availableActions())

	enter(t, m, "stand")
	assert.True(t, m.Round().IsOver())
	assert.True(t, logContains(m, "Dealer has"))
	assert.True(t, logContains(m, "dealer-win"))
	assert.True(t, logContains(m, "Balance: 275"))
	assert.Equal(t, []string{"[new]", "[quit]"}, m.availableActions())

	enter(t, m, "new")
	assert.Equal(t, game.Betting, m.Round().Phase())
	assert.True(t, logContains(m, "New hand with 1 players"))
}

func TestModelReportsErrors(t *testing.T) {
	m := newTestModel(t, "Th6c7d9s6h")

	msg := enter(t, m, "hit")
	require.IsType(t, errMsg{}, msg)
	assert.True(t, logContains(m, "not been dealt"))

	assert.Nil(t, enter(t, m, "fold"))
	assert.True(t, logContains(m, `unknown command "fold"`))

	assert.Nil(t, enter(t, m, ""))

	assert.Nil(t, enter(t, m, "help"))
	assert.True(t, logContains(m, "Commands:"))
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t, "")

	msg := enter(t, m, "quit")
	assert.IsType(t, tea.QuitMsg{}, msg)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestModelView(t *testing.T) {
	m := newTestModel(t, "Th6c7d9s6h")
	assert.Equal(t, "Loading...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	enter(t, m, "bet 25")
	enter(t, m, "deal")

	view := m.View()
	assert.Contains(t, view, "Balances:")
	assert.Contains(t, view, "You")
	assert.Contains(t, view, "Dealer:")
	assert.Contains(t, view, "??", "the hole card stays hidden")
	assert.Contains(t, view, "[stand]")
}
