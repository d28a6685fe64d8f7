// Package simulator plays many headless blackjack sessions concurrently and
// aggregates the results. Every seat, the human one included, plays the
// engine's strategy and bets the table minimum.
package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/statistics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Options controls a simulation run
type Options struct {
	Sessions int   `json:"sessions"`
	Rounds   int   `json:"rounds"` // Maximum rounds per session
	Players  int   `json:"players"`
	Decks    int   `json:"decks"`
	Workers  int   `json:"workers"`
	Seed     int64 `json:"seed"`

	// Rules for every session. A zero MinBet means game.DefaultRules with Decks.
	Rules game.Rules `json:"rules"`
}

func (o *Options) normalize() error {
	if o.Sessions < 1 {
		return fmt.Errorf("sessions must be positive, got %d", o.Sessions)
	}
	if o.Rounds < 1 {
		return fmt.Errorf("rounds must be positive, got %d", o.Rounds)
	}
	if o.Players == 0 {
		o.Players = 1
	}
	if o.Decks == 0 {
		o.Decks = 1
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Rules.MinBet.IsZero() {
		o.Rules = game.DefaultRules()
		o.Rules.DeckCount = o.Decks
	}
	return o.Rules.Validate()
}

// Report summarises a simulation
type Report struct {
	Options Options `json:"options"`

	// All hands from every seat, and the human seat on its own
	Table *statistics.Statistics `json:"table"`
	Human *statistics.Statistics `json:"human"`

	HumanNet         decimal.Decimal `json:"human_net"`
	RoundsPlayed     int             `json:"rounds_played"`
	BustOuts         int             `json:"bust_outs"`
	MeanRoundsToBust float64         `json:"mean_rounds_to_bust"`
	Duration         time.Duration   `json:"duration"`
}

// sessionResult is what one session contributes to the report
type sessionResult struct {
	table    *statistics.Statistics
	human    *statistics.Statistics
	net      decimal.Decimal
	rounds   int
	bustedAt int // Rounds played before the human seat was eliminated, 0 if never
}

// Run plays opts.Sessions sessions on opts.Workers goroutines. Session i is
// seeded with opts.Seed+i, so a run is reproducible whatever the worker count.
func Run(ctx context.Context, opts Options, logger *log.Logger) (*Report, error) {
	if err := opts.normalize(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger = logger.WithPrefix("sim")
	start := time.Now()

	results := make([]sessionResult, opts.Sessions)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := range opts.Sessions {
		g.Go(func() error {
			res, err := playSession(ctx, opts, opts.Seed+int64(i), logger)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Options: opts,
		Table:   statistics.New(),
		Human:   statistics.New(),
	}
	totalToBust := 0
	for _, res := range results {
		report.Table.Merge(res.table)
		report.Human.Merge(res.human)
		report.HumanNet = report.HumanNet.Add(res.net)
		report.RoundsPlayed += res.rounds
		if res.bustedAt > 0 {
			report.BustOuts++
			totalToBust += res.bustedAt
		}
	}
	if report.BustOuts > 0 {
		report.MeanRoundsToBust = float64(totalToBust) / float64(report.BustOuts)
	}
	report.Duration = time.Since(start)

	if err := report.Table.Validate(); err != nil {
		return nil, fmt.Errorf("table statistics: %w", err)
	}
	if err := report.Human.Validate(); err != nil {
		return nil, fmt.Errorf("human statistics: %w", err)
	}

	logger.Info("Simulation complete",
		"sessions", opts.Sessions,
		"rounds", report.RoundsPlayed,
		"hands", report.Table.Hands,
		"human_net", report.HumanNet,
		"duration", report.Duration)
	return report, nil
}

// playSession runs rounds until the limit or until the human seat is out of money
func playSession(ctx context.Context, opts Options, seed int64, logger *log.Logger) (sessionResult, error) {
	engine := game.NewEngine(randutil.New(seed), logger)
	strategy := engine.Strategy()
	res := sessionResult{
		table: statistics.New(),
		human: statistics.New(),
	}

	r, err := engine.StartRound(opts.Rules, opts.Players)
	if err != nil {
		return res, err
	}
	startBalance := r.Human().Balance

	for res.rounds < opts.Rounds {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		human := r.Human()
		if r, err = engine.PlaceBet(r, human.ID, opts.Rules.MinBet); err != nil {
			return res, err
		}
		if r, err = engine.Deal(r); err != nil {
			return res, err
		}
		for !r.IsOver() {
			p := r.Current()
			if p == nil || !p.Human {
				return res, fmt.Errorf("round %s stalled waiting on seat %d", r.ID, r.CurrentPlayer)
			}
			ph := p.Active()
			action := strategy.Decide(ph.Hand, r.DealerUpCard(), r.CanDouble(p.ID), r.CanSplit(p.ID))
			if r, err = engine.Act(r, action); err != nil {
				return res, fmt.Errorf("%s on %s: %w", action, ph.Hand, err)
			}
		}

		res.rounds++
		record(&res, r)
		res.net = r.Human().Balance.Sub(startBalance)

		next, err := engine.NewHand(r)
		if err != nil {
			if kind, ok := game.KindOf(err); ok && kind == game.PlayersDepleted {
				res.bustedAt = res.rounds
				return res, nil
			}
			return res, err
		}
		if next.Human() == nil {
			logger.Debug("Human seat eliminated", "seed", seed, "rounds", res.rounds)
			res.bustedAt = res.rounds
			return res, nil
		}
		r = next
	}
	return res, nil
}

// record adds every settled hand of the round to the session's statistics
func record(res *sessionResult, r *game.Round) {
	minBet := r.Rules.MinBet
	for _, p := range r.Players {
		for _, ph := range p.Hands {
			net, _ := ph.Payout.Sub(ph.Bet).Div(minBet).Float64()
			hr := statistics.HandResult{
				Net:     net,
				Seat:    p.ID,
				Outcome: ph.Result,
				Natural: ph.IsNatural(),
				Doubled: ph.Doubled,
				Split:   ph.Split,
			}
			res.table.Add(hr)
			if p.Human {
				res.human.Add(hr)
			}
		}
	}
}
