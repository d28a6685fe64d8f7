package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/api"
	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/session"
	"golang.org/x/sync/errgroup"
)

// ServeCmd runs the API server
type ServeCmd struct {
	Addr      string `env:"BLACKJACK_ADDR" help:"Listen address (overrides server.address)"`
	Store     string `env:"BLACKJACK_STORE" help:"Session store backend: memory or redis (overrides store.backend)"`
	RedisAddr string `env:"BLACKJACK_REDIS_ADDR" help:"Redis address (overrides store.redis_addr)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load(func(cfg *config.Config) {
		if c.Addr != "" {
			cfg.Server.Address = c.Addr
		}
		if c.Store != "" {
			cfg.Store.Backend = c.Store
		}
		if c.RedisAddr != "" {
			cfg.Store.RedisAddr = c.RedisAddr
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

	ctx, cancel := signalContext(logger)
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	seed := randutil.Seed(g.Seed)
	logger.Info("Using seed", "seed", seed)
	engine := game.NewEngine(randutil.NewLocked(seed), logger)
	manager := session.NewManager(store, engine, rules, logger)

	server := api.NewServer(manager, api.Options{
		Addr:        cfg.Server.Address,
		CORSOrigins: cfg.Server.CORSOrigins,
		Validator:   auth.FromConfig(cfg.Server.APITokens, cfg.Server.AuthURL),
	}, logger)

	logger.Info("Starting blackjack server",
		"address", cfg.Server.Address,
		"store", cfg.Store.Backend,
		"decks", rules.DeckCount,
		"min_bet", rules.MinBet,
		"auth", len(cfg.Server.APITokens) > 0 || cfg.Server.AuthURL != "")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	if idle := cfg.IdleTimeout(); idle > 0 {
		interval := max(idle/4, time.Second)
		logger.Info("Reaping idle sessions", "idle_timeout", idle, "interval", interval)
		group.Go(func() error {
			return manager.RunReaper(ctx, interval, idle)
		})
	}
	return group.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (session.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		store, err := session.NewRedisStore(ctx, cfg.RedisOptions(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Store.RedisAddr, err)
		}
		return store, nil
	default:
		return session.NewMemoryStore(), nil
	}
}
