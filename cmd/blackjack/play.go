package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/session"
	"github.com/lox/blackjack/internal/tui"
	"github.com/muesli/termenv"
)

// PlayCmd plays an in-process session in the terminal
type PlayCmd struct {
	Players int    `help:"Seats at the table (defaults to table.players)"`
	Decks   int    `help:"Decks in the shoe (defaults to table.decks)"`
	NoColor bool   `env:"NO_COLOR" help:"Disable colour output"`
	LogFile string `type:"path" help:"Write debug logs to this file"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.load(func(cfg *config.Config) {
		if c.Players != 0 {
			cfg.Table.Players = c.Players
		}
		if c.Decks != 0 {
			cfg.Table.Decks = c.Decks
		}
	})
	if err != nil {
		return err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut, cfg.Server.LogLevel)

	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	seed := randutil.Seed(g.Seed)
	logger.Info("Using seed", "seed", seed)
	engine := game.NewEngine(randutil.New(seed), logger)
	manager := session.NewManager(session.NewMemoryStore(), engine, rules, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, err := manager.Start(ctx, rules.DeckCount, cfg.Table.Players)
	if err != nil {
		return err
	}
	return tui.Run(ctx, manager, rec.ID, logger)
}
