package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/config"
)

// Globals are the flags shared by every command
type Globals struct {
	Config   string `short:"c" default:"blackjack.hcl" env:"BLACKJACK_CONFIG" help:"HCL configuration file"`
	LogLevel string `env:"BLACKJACK_LOG_LEVEL" help:"Override the configured log level (debug, info, warn, error)"`
	Seed     *int64 `env:"BLACKJACK_SEED" help:"Deterministic RNG seed (optional)"`
}

// load reads the config file, applies command line overrides and validates the result
func (g *Globals) load(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Server.LogLevel = g.LogLevel
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", g.Config, err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	})
}

// signalContext is cancelled on interrupt or terminate
func signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received signal, shutting down gracefully", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
