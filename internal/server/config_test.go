package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 1, cfg.Game.MinBet)
	assert.Equal(t, 0, cfg.Game.MaxBet)
	assert.Equal(t, 10, cfg.Game.HistoryLimit)
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
}

storage {
  driver = "sqlite"
  path   = "/var/lib/blackjack/table.db"
}

game {
  min_bet              = 5
  max_bet              = 500
  leaderboard_size     = 25
  idle_timeout_seconds = 600
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/blackjack/table.db", cfg.Storage.Path)
	assert.Equal(t, 5, cfg.Game.MinBet)
	assert.Equal(t, 500, cfg.Game.MaxBet)
	assert.Equal(t, 25, cfg.Game.LeaderboardSize)
	assert.Equal(t, 10*time.Minute, cfg.IdleTimeout())

	// Omitted values fall back to defaults.
	assert.Equal(t, 10, cfg.Game.HistoryLimit)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	path := writeConfigFile(t, `server { port = `)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid port"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, "unknown storage driver"},
		{"sqlite needs path", func(c *Config) { c.Storage.Driver = "sqlite" }, "requires a path"},
		{"min bet zero", func(c *Config) { c.Game.MinBet = 0 }, "min bet"},
		{"max below min", func(c *Config) { c.Game.MinBet = 10; c.Game.MaxBet = 5 }, "below min bet"},
		{"history limit", func(c *Config) { c.Game.HistoryLimit = 0 }, "history limit"},
		{"leaderboard size", func(c *Config) { c.Game.LeaderboardSize = -1 }, "leaderboard size"},
		{"idle timeout", func(c *Config) { c.Game.IdleTimeoutSeconds = 0 }, "idle timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
