package main

import (
	"strings"

	"github.com/lox/blackjacktable/cmd/blackjacktable/shared"
	"github.com/lox/blackjacktable/internal/tui"
)

// ClientCmd connects to a server as an interactive player
type ClientCmd struct {
	Server  string `kong:"default='ws://localhost:8080/ws',help='WebSocket server URL'"`
	LogFile string `kong:"default='blackjack-client.log',help='Client debug log file'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
}

func (c *ClientCmd) Run() error {
	level := "info"
	if c.Debug {
		level = "debug"
	}

	// Logs go to a file so they do not corrupt the TUI.
	logger, closer, err := shared.SetupFileLogger(c.LogFile, level)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	client, err := tui.Dial(strings.TrimSpace(c.Server), logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return tui.Run(client, logger)
}
