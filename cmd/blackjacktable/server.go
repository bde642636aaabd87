package main

import (
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/blackjacktable/cmd/blackjacktable/shared"
	"github.com/lox/blackjacktable/internal/server"
	"github.com/lox/blackjacktable/internal/store"
	"github.com/lox/blackjacktable/internal/store/sqlite"
)

// ServerCmd runs the blackjack server
type ServerCmd struct {
	Config string `kong:"default='blackjacktable.hcl',help='Path to HCL config file'"`
	Addr   string `kong:"help='Listen address, overrides config'"`
	DB     string `kong:"help='SQLite database path, overrides config and selects the sqlite driver'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.DB != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.Path = c.DB
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel)

	var accounts store.AccountStore
	var sessions store.SessionStore
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database", "error", err)
			}
		}()
		accounts = db.Accounts()
		sessions = db.Sessions()
		logger.Info("Using sqlite storage", "path", cfg.Storage.Path)
	default:
		accounts = store.NewMemoryAccountStore()
		sessions = store.NewMemorySessionStore()
		logger.Info("Using in-memory storage, state is lost on restart")
	}

	svcCfg := server.ServiceConfig{
		MinBet:          cfg.Game.MinBet,
		MaxBet:          cfg.Game.MaxBet,
		HistoryLimit:    cfg.Game.HistoryLimit,
		LeaderboardSize: cfg.Game.LeaderboardSize,
		IdleTimeout:     cfg.IdleTimeout(),
		JanitorInterval: time.Minute,
	}
	svc := server.NewGameService(logger, accounts, sessions, quartz.NewReal(), svcCfg)
	s := server.NewServer(addr, logger, svc)

	logger.Info("Starting blackjack server",
		"addr", addr,
		"storage", cfg.Storage.Driver,
		"min_bet", svcCfg.MinBet,
		"max_bet", svcCfg.MaxBet,
		"idle_timeout", svcCfg.IdleTimeout)

	ctx := shared.SetupSignalHandler(logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		return s.Stop()
	case err := <-serverErr:
		return err
	}
}
