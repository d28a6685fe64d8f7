package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"github.com/shopspring/decimal"
)

// Command is a parsed line of user input
type Command struct {
	Name   string // bet, deal, action, new, help, quit
	Amount decimal.Decimal
	Action game.Action
}

var errEmpty = errors.New("empty command")

// ParseCommand parses input such as "bet 50", "deal", "h" or "quit"
func ParseCommand(input string) (Command, error) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return Command{}, errEmpty
	}

	switch name, args := fields[0], fields[1:]; name {
	case "bet", "b":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: bet <amount>")
		}
		amount, err := decimal.NewFromString(strings.TrimPrefix(args[0], "$"))
		if err != nil {
			return Command{}, fmt.Errorf("invalid amount %q", args[0])
		}
		return Command{Name: "bet", Amount: amount}, nil
	case "deal":
		return Command{Name: "deal"}, nil
	case "new", "n", "newhand":
		return Command{Name: "new"}, nil
	case "help", "?":
		return Command{Name: "help"}, nil
	case "quit", "q", "exit":
		return Command{Name: "quit"}, nil
	default:
		action, err := game.ParseAction(name)
		if err != nil {
			return Command{}, fmt.Errorf("unknown command %q, type help for a list", name)
		}
		return Command{Name: "action", Action: action}, nil
	}
}

// stateMsg carries the session after a successful command
type stateMsg struct {
	rec     *session.Record
	command Command
}

// errMsg carries a rejected command
type errMsg struct {
	err     error
	command Command
}

// run executes cmd against the session in the background
func (m *Model) run(cmd Command) tea.Cmd {
	ctx, manager, id := m.ctx, m.manager, m.sessionID
	return func() tea.Msg {
		var (
			rec *session.Record
			err error
		)
		switch cmd.Name {
		case "bet":
			rec, err = manager.PlaceBet(ctx, id, cmd.Amount)
		case "deal":
			rec, err = manager.Deal(ctx, id)
		case "action":
			rec, err = manager.Act(ctx, id, cmd.Action)
		case "new":
			rec, err = manager.NewHand(ctx, id)
		default:
			rec, err = manager.Get(ctx, id)
		}
		if err != nil {
			return errMsg{err: err, command: cmd}
		}
		return stateMsg{rec: rec, command: cmd}
	}
}

// fetch loads the current session state
func (m *Model) fetch() tea.Cmd {
	return m.run(Command{Name: "state"})
}

func helpLines() []string {
	return []string{
		"Commands:",
		"  bet <amount>   stake on your hand before the deal",
		"  deal           deal the cards",
		"  hit (h)        take a card",
		"  stand (s)      keep your hand",
		"  double (d)     double the bet and take one card",
		"  split (p)      split a pair into two hands",
		"  new (n)        start the next hand",
		"  quit (q)       leave the table",
	}
}
