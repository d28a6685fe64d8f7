// Package tui plays a blackjack session in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
)

const sidebarWidth = 28

// Model is the bubbletea model for one seat at a local table
type Model struct {
	ctx       context.Context
	manager   *session.Manager
	sessionID string
	logger    *log.Logger

	logViewport viewport.Model
	input       textinput.Model

	round    *game.Round
	gameLog  []string
	quitting bool
	// 0 = log, 1 = input
	focusedPane int

	width       int
	height      int
	initialized bool
}

// New creates a model playing the given session
func New(ctx context.Context, manager *session.Manager, sessionID string, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Placeholder = "bet 25, deal, hit, stand, double, split, new, quit"
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 64
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(focusedBorder).Bold(true)

	return &Model{
		ctx:         ctx,
		manager:     manager,
		sessionID:   sessionID,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		input:       ti,
		focusedPane: 1,
	}
}

// Run plays the session until the user quits
func Run(ctx context.Context, manager *session.Manager, sessionID string, logger *log.Logger, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, manager, sessionID, logger), opts...)
	_, err := p.Run()
	return err
}

// Init loads the session and starts the cursor blinking
func (m *Model) Init() tea.Cmd {
	m.AddLogEntry(HeaderStyle.Render("Blackjack") + "  type help for commands")
	return tea.Batch(textinput.Blink, m.fetch())
}

// Update handles input and command results
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case stateMsg:
		prev := m.round
		m.round = msg.rec.Round
		for _, line := range describe(prev, m.round, msg.command) {
			m.AddLogEntry(line)
		}
		return m, nil

	case errMsg:
		m.logger.Debug("Command rejected", "command", msg.command.Name, "error", msg.err)
		m.AddLogEntry(ErrorStyle.Render(msg.err.Error()))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.input.Focus()
			} else {
				m.focusedPane = 0
				m.input.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				line := m.input.Value()
				m.input.SetValue("")
				return m, m.submit(line)
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit parses a line of input and returns the command to run, if any
func (m *Model) submit(line string) tea.Cmd {
	cmd, err := ParseCommand(line)
	switch {
	case errors.Is(err, errEmpty):
		return nil
	case err != nil:
		m.AddLogEntry(WarningStyle.Render(err.Error()))
		return nil
	}

	m.AddLogEntry(InfoStyle.Render("> " + strings.TrimSpace(line)))
	switch cmd.Name {
	case "quit":
		m.quitting = true
		return tea.Quit
	case "help":
		for _, l := range helpLines() {
			m.AddLogEntry(l)
		}
		return nil
	}
	return m.run(cmd)
}

// View renders the log and sidebar above the action pane
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor(m.focusedPane == 1)).
		Width(max(m.width-2, 1)).
		Render(actionContent)

	paneHeight := max(m.height-actionHeight-4, 1)
	sidebar := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(blurredBorder).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(m.renderSidebar())

	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if !m.initialized && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}
	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor(m.focusedPane == 0)).
		Width(m.logViewport.Width).
		Height(paneHeight).
		Render(m.logViewport.View())

	top := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebar)
	return lipgloss.JoinVertical(lipgloss.Top, top, actionPane)
}

func borderColor(focused bool) lipgloss.Color {
	if focused {
		return focusedBorder
	}
	return blurredBorder
}

func (m *Model) renderSidebar() string {
	var b strings.Builder
	if m.round == nil {
		return InfoStyle.Render("No table")
	}
	r := m.round

	b.WriteString(WarningStyle.Render(fmt.Sprintf("Shoe: %d/%d", r.Shoe.Remaining(), r.Shoe.Size())))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render("Phase: " + r.Phase().String()))
	b.WriteString("\n\n")
	b.WriteString(InfoStyle.Render("Balances:"))
	b.WriteString("\n")
	for _, p := range r.Players {
		line := fmt.Sprintf("  %-9s %s", p.Name, p.Balance.StringFixed(2))
		if bet := p.CurrentBet(); bet.IsPositive() {
			line += fmt.Sprintf(" (%s)", bet)
		}
		if p.Human {
			line = SuccessStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderActionPane() string {
	var b strings.Builder

	if r := m.round; r != nil && r.Dealt() {
		b.WriteString(HandInfoStyle.Render("Dealer: "))
		b.WriteString(FormatCards(r.Dealer.Cards, !r.IsOver()))
		if r.IsOver() {
			b.WriteString(fmt.Sprintf(" (%d)", r.Dealer.BestValue()))
		}
		b.WriteString("\n")

		if human := r.Human(); human != nil {
			for i, ph := range human.Hands {
				marker := "  "
				if r.IsPlayerTurn() && r.Current() == human && human.CurrentHand == i {
					marker = "> "
				}
				b.WriteString(HandInfoStyle.Render(fmt.Sprintf("%sHand %d: ", marker, i+1)))
				b.WriteString(FormatCards(ph.Hand.Cards, false))
				b.WriteString(fmt.Sprintf(" (%d) bet %s", ph.Hand.BestValue(), ph.Bet))
				if ph.Result.Settled() {
					b.WriteString(" " + resultStyle(ph.Result).Render(ph.Result.String()))
				}
				b.WriteString("\n")
			}
		}
	}

	b.WriteString(ActionsStyle.Render("Actions: " + strings.Join(m.availableActions(), " ")))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.focusedPane == 0 {
		b.WriteString(InfoStyle.Render("Log focused: ↑↓ scroll, PgUp/PgDn half page, Tab to input"))
	} else {
		b.WriteString(InfoStyle.Render("Tab to scroll log • Enter to submit • Ctrl+C to quit"))
	}
	return b.String()
}

// availableActions lists the commands that make sense in the current phase
func (m *Model) availableActions() []string {
	r := m.round
	if r == nil {
		return []string{"[quit]"}
	}

	switch r.Phase() {
	case game.Betting:
		return []string{"[bet N]", "[deal]"}
	case game.PlayerTurns:
		human := r.Human()
		if human == nil || r.Current() != human {
			return []string{"[waiting]"}
		}
		actions := []string{"[hit]", "[stand]"}
		if r.CanDouble(human.ID) {
			actions = append(actions, "[double]")
		}
		if r.CanSplit(human.ID) {
			actions = append(actions, "[split]")
		}
		return actions
	default:
		return []string{"[new]", "[quit]"}
	}
}

func resultStyle(r game.Result) lipgloss.Style {
	switch r.Winner() {
	case "player":
		return SuccessStyle
	case "dealer":
		return ErrorStyle
	default:
		return WarningStyle
	}
}

// FormatCards renders cards with red suits coloured. With hideHole the
// second card is shown face down.
func FormatCards(cards []deck.Card, hideHole bool) string {
	formatted := make([]string, 0, len(cards))
	for i, c := range cards {
		switch {
		case i == 1 && hideHole:
			formatted = append(formatted, HiddenCardStyle.Render("??"))
		case c.IsRed():
			formatted = append(formatted, RedCardStyle.Render(c.String()))
		default:
			formatted = append(formatted, BlackCardStyle.Render(c.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

// AddLogEntry appends a line to the log and scrolls to it
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns a copy of the log lines
func (m *Model) Log() []string {
	return append([]string(nil), m.gameLog...)
}

// Round returns the last round state received
func (m *Model) Round() *game.Round {
	return m.round
}

// describe turns a state change into log lines
func describe(prev, next *game.Round, cmd Command) []string {
	var lines []string
	human := next.Human()

	switch cmd.Name {
	case "state":
		if human != nil {
			lines = append(lines, fmt.Sprintf("Seated as %s with %s", human.Name, human.Balance))
		}
	case "bet":
		if human != nil {
			lines = append(lines, fmt.Sprintf("You bet %s, balance %s", human.CurrentBet(), human.Balance))
		}
	case "new":
		lines = append(lines, fmt.Sprintf("New hand with %d players, %d cards left", len(next.Players), next.Shoe.Remaining()))
		if human == nil {
			lines = append(lines, ErrorStyle.Render("You are out of money"))
		}
	}

	dealtNow := next.Dealt() && (prev == nil || !prev.Dealt())
	if dealtNow {
		lines = append(lines, "Dealer shows "+FormatCards(next.Dealer.Cards[:1], false))
		for _, p := range next.Players {
			lines = append(lines, fmt.Sprintf("%s: %s", p.Name, FormatCards(p.Hands[0].Hand.Cards, false)))
		}
	}
	if cmd.Name == "action" && human != nil {
		for i, ph := range human.Hands {
			lines = append(lines, fmt.Sprintf("Hand %d: %s (%d)", i+1, FormatCards(ph.Hand.Cards, false), ph.Hand.BestValue()))
		}
	}

	overNow := next.IsOver() && next.Dealt() && (prev == nil || !prev.IsOver() || !prev.Dealt())
	if overNow {
		lines = append(lines, fmt.Sprintf("Dealer has %s (%d)", FormatCards(next.Dealer.Cards, false), next.Dealer.BestValue()))
		for _, p := range next.Players {
			for i, ph := range p.Hands {
				lines = append(lines, fmt.Sprintf("%s hand %d: %s, paid %s", p.Name, i+1, resultStyle(ph.Result).Render(ph.Result.String()), ph.Payout))
			}
		}
		if human != nil {
			lines = append(lines, SuccessStyle.Render(fmt.Sprintf("Balance: %s", human.Balance)))
		}
	}
	return lines
}
