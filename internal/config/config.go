// Package config loads the blackjack server configuration from HCL.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"github.com/shopspring/decimal"
)

// Config represents the complete server configuration
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Table  *TableSettings  `hcl:"table,block"`
	Store  *StoreSettings  `hcl:"store,block"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Address     string   `hcl:"address,optional"`
	LogLevel    string   `hcl:"log_level,optional"`
	CORSOrigins []string `hcl:"cors_origins,optional"`
	APITokens   []string `hcl:"api_tokens,optional"`
	AuthURL     string   `hcl:"auth_url,optional"`
}

// TableSettings are the defaults for new sessions
type TableSettings struct {
	Decks             int     `hcl:"decks,optional"`
	Players           int     `hcl:"players,optional"`
	MinBet            string  `hcl:"min_bet,optional"`
	StartingBalance   string  `hcl:"starting_balance,optional"`
	DealerHitsSoft17  bool    `hcl:"dealer_hits_soft17,optional"`
	ReshuffleFraction float64 `hcl:"reshuffle_fraction,optional"`
}

// StoreSettings selects where sessions live
type StoreSettings struct {
	Backend       string `hcl:"backend,optional"`
	RedisAddr     string `hcl:"redis_addr,optional"`
	RedisPassword string `hcl:"redis_password,optional"`
	RedisDB       int    `hcl:"redis_db,optional"`
	KeyPrefix     string `hcl:"key_prefix,optional"`
	LockTTLMs     int    `hcl:"lock_ttl_ms,optional"`
	IdleTimeoutS  int    `hcl:"idle_timeout_s,optional"`
}

// Store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Default returns the configuration used when no file is present
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from an HCL file. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source and applies defaults for anything left unset
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	// Every block is optional
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Table == nil {
		c.Table = &TableSettings{}
	}
	if c.Store == nil {
		c.Store = &StoreSettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = "localhost:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	rules := game.DefaultRules()
	if c.Table.Decks == 0 {
		c.Table.Decks = rules.DeckCount
	}
	if c.Table.Players == 0 {
		c.Table.Players = 1
	}
	if c.Table.MinBet == "" {
		c.Table.MinBet = rules.MinBet.String()
	}
	if c.Table.StartingBalance == "" {
		c.Table.StartingBalance = rules.StartingBalance.String()
	}
	if c.Table.ReshuffleFraction == 0 {
		c.Table.ReshuffleFraction = rules.ReshuffleFraction
	}

	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.RedisAddr == "" {
		c.Store.RedisAddr = "localhost:6379"
	}
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = "blackjack:"
	}
	if c.Store.LockTTLMs == 0 {
		c.Store.LockTTLMs = 5000
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.Table.Players < 1 || c.Table.Players > game.MaxPlayers {
		return fmt.Errorf("table: players must be between 1 and %d", game.MaxPlayers)
	}
	rules, err := c.Rules()
	if err != nil {
		return err
	}
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("table: %w", err)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store: redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	if c.Store.LockTTLMs < 0 || c.Store.IdleTimeoutS < 0 {
		return fmt.Errorf("store: durations must not be negative")
	}

	return nil
}

// Rules converts the table block into game rules
func (c *Config) Rules() (game.Rules, error) {
	minBet, err := decimal.NewFromString(c.Table.MinBet)
	if err != nil {
		return game.Rules{}, fmt.Errorf("table: invalid min_bet %q: %w", c.Table.MinBet, err)
	}
	balance, err := decimal.NewFromString(c.Table.StartingBalance)
	if err != nil {
		return game.Rules{}, fmt.Errorf("table: invalid starting_balance %q: %w", c.Table.StartingBalance, err)
	}
	return game.Rules{
		DeckCount:         c.Table.Decks,
		MinBet:            minBet,
		StartingBalance:   balance,
		DealerHitsSoft17:  c.Table.DealerHitsSoft17,
		ReshuffleFraction: c.Table.ReshuffleFraction,
	}, nil
}

// RedisOptions returns the connection settings for the redis backend
func (c *Config) RedisOptions() session.RedisOptions {
	return session.RedisOptions{
		Addr:      c.Store.RedisAddr,
		Password:  c.Store.RedisPassword,
		DB:        c.Store.RedisDB,
		KeyPrefix: c.Store.KeyPrefix,
		LockTTL:   time.Duration(c.Store.LockTTLMs) * time.Millisecond,
	}
}

// IdleTimeout is how long a session may sit untouched before it is reaped.
// Zero disables reaping.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Store.IdleTimeoutS) * time.Second
}
