package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/simulator"
	"github.com/pterm/pterm"
)

// SimulateCmd plays many headless sessions and prints a summary
type SimulateCmd struct {
	Sessions int    `default:"100" help:"Number of independent sessions"`
	Rounds   int    `default:"100" help:"Maximum rounds per session"`
	Players  int    `help:"Seats per table (defaults to table.players)"`
	Decks    int    `help:"Decks per shoe (defaults to table.decks)"`
	Workers  int    `help:"Concurrent workers (defaults to the CPU count)"`
	Report   string `type:"path" help:"Write the JSON report to this file"`
}

func (c *SimulateCmd) Run(g *Globals) error {
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
	logger := newLogger(os.Stderr, cfg.Server.LogLevel)

	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	workers := c.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	seed := randutil.Seed(g.Seed)
	logger.Info("Starting simulation", "sessions", c.Sessions, "rounds", c.Rounds, "workers", workers, "seed", seed)
	report, err := simulator.Run(ctx, simulator.Options{
		Sessions: c.Sessions,
		Rounds:   c.Rounds,
		Players:  cfg.Table.Players,
		Decks:    rules.DeckCount,
		Workers:  workers,
		Seed:     seed,
		Rules:    rules,
	}, logger)
	if err != nil {
		return err
	}

	if err := printReport(report); err != nil {
		return err
	}
	if c.Report != "" {
		if err := fileutil.WriteJSON(c.Report, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		pterm.Success.Printfln("Report written to %s", c.Report)
	}
	return nil
}

func printReport(r *simulator.Report) error {
	human := r.Human
	low, high := human.ConfidenceInterval95()

	pterm.DefaultSection.Println("Simulation results")
	summary := pterm.TableData{
		{"Metric", "Value"},
		{"Sessions", fmt.Sprint(r.Options.Sessions)},
		{"Rounds played", fmt.Sprint(r.RoundsPlayed)},
		{"Hands (all seats)", fmt.Sprint(r.Table.Hands)},
		{"Hands (you)", fmt.Sprint(human.Hands)},
		{"Net (you)", r.HumanNet.StringFixed(2)},
		{"Mean per hand", fmt.Sprintf("%.4f bets", human.Mean())},
		{"95% CI", fmt.Sprintf("[%.4f, %.4f]", low, high)},
		{"Bust-outs", fmt.Sprintf("%d (mean %.1f rounds)", r.BustOuts, r.MeanRoundsToBust)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(summary).Render(); err != nil {
		return err
	}

	pterm.DefaultSection.Println("Outcomes (all seats)")
	outcomes := pterm.TableData{{"Outcome", "Hands", "Rate"}}
	for _, result := range []game.Result{game.PlayerWin, game.DealerBust, game.Push, game.DealerWin, game.PlayerBust} {
		outcomes = append(outcomes, []string{
			result.String(),
			fmt.Sprint(r.Table.Outcomes[result.String()]),
			fmt.Sprintf("%.2f%%", r.Table.Rate(result)*100),
		})
	}
	outcomes = append(outcomes,
		[]string{"naturals", fmt.Sprint(r.Table.Naturals), ""},
		[]string{"doubles", fmt.Sprint(r.Table.Doubles), ""},
		[]string{"splits", fmt.Sprint(r.Table.Splits), ""},
	)
	if err := pterm.DefaultTable.WithHasHeader().WithData(outcomes).Render(); err != nil {
		return err
	}

	pterm.DefaultSection.Println("By seat")
	seats := pterm.TableData{{"Seat", "Hands", "Mean"}}
	for i := 0; i < r.Options.Players; i++ {
		seats = append(seats, []string{
			fmt.Sprint(i + 1),
			fmt.Sprint(r.Table.Seats[i].Hands),
			fmt.Sprintf("%.4f", r.Table.SeatMean(i)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(seats).Render()
}
