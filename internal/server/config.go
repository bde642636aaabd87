package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration
type Config struct {
	Server  ServerSettings  `hcl:"server,block"`
	Storage StorageSettings `hcl:"storage,block"`
	Game    GameSettings    `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// StorageSettings selects where accounts and sessions are persisted.
type StorageSettings struct {
	Driver string `hcl:"driver,optional"` // "memory" or "sqlite"
	Path   string `hcl:"path,optional"`   // sqlite database file
}

// GameSettings contains the table rules and service limits.
type GameSettings struct {
	MinBet             int `hcl:"min_bet,optional"`
	MaxBet             int `hcl:"max_bet,optional"` // 0 means no cap
	HistoryLimit       int `hcl:"history_limit,optional"`
	LeaderboardSize    int `hcl:"leaderboard_size,optional"`
	IdleTimeoutSeconds int `hcl:"idle_timeout_seconds,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Storage: StorageSettings{
			Driver: "memory",
		},
		Game: GameSettings{
			MinBet:             1,
			MaxBet:             0,
			HistoryLimit:       10,
			LeaderboardSize:    10,
			IdleTimeoutSeconds: 1800,
		},
	}
}

// LoadConfig loads server configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	defaults := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = defaults.Storage.Driver
	}
	if config.Game.MinBet == 0 {
		config.Game.MinBet = defaults.Game.MinBet
	}
	if config.Game.HistoryLimit == 0 {
		config.Game.HistoryLimit = defaults.Game.HistoryLimit
	}
	if config.Game.LeaderboardSize == 0 {
		config.Game.LeaderboardSize = defaults.Game.LeaderboardSize
	}
	if config.Game.IdleTimeoutSeconds == 0 {
		config.Game.IdleTimeoutSeconds = defaults.Game.IdleTimeoutSeconds
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("sqlite storage requires a path")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}

	if c.Game.MinBet < 1 {
		return fmt.Errorf("min bet must be positive, got %d", c.Game.MinBet)
	}
	if c.Game.MaxBet != 0 && c.Game.MaxBet < c.Game.MinBet {
		return fmt.Errorf("max bet %d is below min bet %d", c.Game.MaxBet, c.Game.MinBet)
	}
	if c.Game.HistoryLimit < 1 {
		return fmt.Errorf("history limit must be positive, got %d", c.Game.HistoryLimit)
	}
	if c.Game.LeaderboardSize < 1 {
		return fmt.Errorf("leaderboard size must be positive, got %d", c.Game.LeaderboardSize)
	}
	if c.Game.IdleTimeoutSeconds < 1 {
		return fmt.Errorf("idle timeout must be positive, got %d", c.Game.IdleTimeoutSeconds)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// IdleTimeout returns the idle session timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Game.IdleTimeoutSeconds) * time.Second
}
