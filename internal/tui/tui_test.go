package tui

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/server"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	return NewModel(&Client{incoming: make(chan *server.Message, 1)}, testLogger())
}

func serverMessage(t *testing.T, mt server.MessageType, data interface{}) *server.Message {
	t.Helper()
	msg, err := server.NewMessage(mt, data)
	require.NoError(t, err)
	return msg
}

func TestAuthResponseUpdatesSession(t *testing.T) {
	m := newTestModel(t)
	assert.False(t, m.authenticated)

	m.handleServerMessage(serverMessage(t, server.MessageTypeAuthResponse, server.AuthResponseData{
		Success:  true,
		PlayerID: "p1",
		Username: "alice",
		Balance:  1000,
	}))

	assert.True(t, m.authenticated)
	assert.Equal(t, "alice", m.username)
	assert.Equal(t, 1000, m.balance)
	assert.Contains(t, m.gameLog[len(m.gameLog)-2], "alice")
}

func TestGameStateUpdatesTable(t *testing.T) {
	m := newTestModel(t)
	m.authenticated = true

	m.handleServerMessage(serverMessage(t, server.MessageTypeGameState, server.GameStateData{
		SessionID:   "s1",
		Status:      "in_progress",
		PlayerHand:  deck.MustParseCards("Ts9h"),
		PlayerScore: 19,
		DealerHand:  deck.MustParseCards("8d"),
		DealerScore: 8,
		HoleHidden:  true,
		BetAmount:   100,
		Balance:     900,
		CreatedAt:   time.Now(),
	}))

	require.NotNil(t, m.game)
	assert.Equal(t, "s1", m.game.SessionID)
	assert.Equal(t, 900, m.balance)

	table := m.renderTable()
	assert.Contains(t, table, "Dealer (8+?)")
	assert.Contains(t, table, "You (19)")
	assert.Contains(t, table, "??")
}

func TestErrorMessageLogged(t *testing.T) {
	m := newTestModel(t)

	m.handleServerMessage(serverMessage(t, server.MessageTypeError, server.ErrorData{
		Code:    "insufficient_balance",
		Message: "insufficient balance",
	}))

	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "insufficient balance")
}

func TestCommandsRequireAuth(t *testing.T) {
	m := newTestModel(t)

	quit := m.processCommand("bet 100")
	assert.False(t, quit)
	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "login first")

	m.processCommand("hit")
	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "login first")
}

func TestActionsRequireGameInProgress(t *testing.T) {
	m := newTestModel(t)
	m.authenticated = true

	m.processCommand("stand")
	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "No game in progress")
}

func TestQuitCommand(t *testing.T) {
	m := newTestModel(t)
	assert.True(t, m.processCommand("quit"))
	assert.True(t, m.processCommand("exit"))
}

func TestUnknownCommand(t *testing.T) {
	m := newTestModel(t)
	m.processCommand("flip")
	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "Unknown command")
}

func TestBetCommandValidation(t *testing.T) {
	m := newTestModel(t)
	m.authenticated = true

	m.processCommand("bet")
	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "Usage: bet")

	m.processCommand("bet abc")
	assert.Contains(t, m.gameLog[len(m.gameLog)-1], "must be a number")
}

func TestRenderHand(t *testing.T) {
	cards := deck.MustParseCards("AsTh")
	out := renderHand(cards, true)
	assert.Contains(t, out, "A♠")
	assert.Contains(t, out, "10♥")
	assert.Contains(t, out, "??")

	assert.Empty(t, renderHand(nil, false))
}
