package server

import (
	"encoding/json"
	"time"

	"github.com/lox/blackjacktable/internal/account"
	"github.com/lox/blackjacktable/internal/blackjack"
	"github.com/lox/blackjacktable/internal/deck"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type CredentialsData struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StartGameData struct {
	BetAmount int `json:"betAmount"`
}

type SessionData struct {
	SessionID string `json:"sessionId"`
}

type HistoryData struct {
	Limit int `json:"limit,omitempty"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Username string `json:"username,omitempty"`
	Balance  int    `json:"balance"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GameStateData is the wire form of a game session. The dealer's hole card
// stays hidden until the game finishes; the engine itself has no notion of
// visibility, so the masking happens here.
type GameStateData struct {
	SessionID   string      `json:"sessionId"`
	Status      string      `json:"status"`
	PlayerHand  []deck.Card `json:"playerHand"`
	PlayerScore int         `json:"playerScore"`
	DealerHand  []deck.Card `json:"dealerHand"`
	DealerScore int         `json:"dealerScore"`
	HoleHidden  bool        `json:"holeHidden"`
	BetAmount   int         `json:"betAmount"`
	WinAmount   int         `json:"winAmount"`
	Outcome     string      `json:"outcome,omitempty"`
	Balance     int         `json:"balance"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type BalanceData struct {
	PlayerID   string `json:"playerId"`
	Username   string `json:"username"`
	Balance    int    `json:"balance"`
	Wins       int    `json:"wins"`
	TotalGames int    `json:"totalGames"`
	HighestWin int    `json:"highestWin"`
}

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Username   string `json:"username"`
	Balance    int    `json:"balance"`
	Wins       int    `json:"wins"`
	TotalGames int    `json:"totalGames"`
	HighestWin int    `json:"highestWin"`
}

type LeaderboardResultData struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type HistoryResultData struct {
	Games []GameStateData `json:"games"`
}

// GameStateFromGame converts an engine game to its wire form, masking the
// dealer's hole card while the game is still in progress.
func GameStateFromGame(g *blackjack.Game, balance int) GameStateData {
	state := GameStateData{
		SessionID:   g.ID,
		Status:      g.Status.String(),
		PlayerHand:  g.PlayerHand,
		PlayerScore: g.PlayerScore(),
		DealerHand:  g.DealerHand,
		DealerScore: g.DealerScore(),
		BetAmount:   g.BetAmount,
		WinAmount:   g.WinAmount,
		Outcome:     g.Outcome,
		Balance:     balance,
		CreatedAt:   g.CreatedAt,
	}

	if !g.Finished() && len(g.DealerHand) > 1 {
		visible := g.DealerHand[:1]
		state.DealerHand = visible
		state.DealerScore = blackjack.Score(visible)
		state.HoleHidden = true
	}

	return state
}

// BalanceFromAccount converts an account to its wire form.
func BalanceFromAccount(a *account.Account) BalanceData {
	return BalanceData{
		PlayerID:   a.ID,
		Username:   a.Username,
		Balance:    a.Balance,
		Wins:       a.Wins,
		TotalGames: a.TotalGames,
		HighestWin: a.HighestWin,
	}
}

// LeaderboardFromAccounts converts ranked accounts to wire form.
func LeaderboardFromAccounts(accounts []*account.Account) LeaderboardResultData {
	entries := make([]LeaderboardEntry, len(accounts))
	for i, a := range accounts {
		entries[i] = LeaderboardEntry{
			Rank:       i + 1,
			Username:   a.Username,
			Balance:    a.Balance,
			Wins:       a.Wins,
			TotalGames: a.TotalGames,
			HighestWin: a.HighestWin,
		}
	}
	return LeaderboardResultData{Entries: entries}
}
