package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, "localhost:8080", c.Server.Address)
	assert.Equal(t, "info", c.Server.LogLevel)
	assert.Equal(t, BackendMemory, c.Store.Backend)
	assert.Equal(t, 1, c.Table.Players)

	rules, err := c.Rules()
	require.NoError(t, err)
	assert.Equal(t, 1, rules.DeckCount)
	assert.Equal(t, "25", rules.MinBet.String())
	assert.Equal(t, "300", rules.StartingBalance.String())
	assert.False(t, rules.DealerHitsSoft17)
	assert.InDelta(t, 0.2, rules.ReshuffleFraction, 1e-9)
	assert.Equal(t, time.Duration(0), c.IdleTimeout())
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	src := `
server {
  address      = "0.0.0.0:9000"
  log_level    = "debug"
  cors_origins = ["https://example.com"]
  api_tokens   = ["secret"]
}

table {
  decks              = 6
  players            = 4
  min_bet            = "10"
  starting_balance   = "500"
  dealer_hits_soft17 = true
}

store {
  backend        = "redis"
  redis_addr     = "redis:6379"
  redis_db       = 2
  lock_ttl_ms    = 2500
  idle_timeout_s = 1800
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "0.0.0.0:9000", c.Server.Address)
	assert.Equal(t, []string{"https://example.com"}, c.Server.CORSOrigins)
	assert.Equal(t, []string{"secret"}, c.Server.APITokens)
	assert.Equal(t, 4, c.Table.Players)

	rules, err := c.Rules()
	require.NoError(t, err)
	assert.Equal(t, 6, rules.DeckCount)
	assert.Equal(t, "10", rules.MinBet.String())
	assert.Equal(t, "500", rules.StartingBalance.String())
	assert.True(t, rules.DealerHitsSoft17)
	assert.InDelta(t, 0.2, rules.ReshuffleFraction, 1e-9, "unset values keep their default")

	opts := c.RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "blackjack:", opts.KeyPrefix)
	assert.Equal(t, 2500*time.Millisecond, opts.LockTTL)
	assert.Equal(t, 30*time.Minute, c.IdleTimeout())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`server {`), "bad.hcl")
	assert.Error(t, err)

	_, err = Parse([]byte(`server { port = 1 }`), "bad.hcl")
	assert.Error(t, err, "unknown attributes are rejected")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Server.LogLevel = "verbose" }},
		{"too many players", func(c *Config) { c.Table.Players = 8 }},
		{"too many decks", func(c *Config) { c.Table.Decks = 9 }},
		{"bad min bet", func(c *Config) { c.Table.MinBet = "lots" }},
		{"zero min bet", func(c *Config) { c.Table.MinBet = "0" }},
		{"balance below min bet", func(c *Config) { c.Table.StartingBalance = "10" }},
		{"backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"redis without addr", func(c *Config) {
			c.Store.Backend = BackendRedis
			c.Store.RedisAddr = ""
		}},
		{"negative idle", func(c *Config) { c.Store.IdleTimeoutS = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
