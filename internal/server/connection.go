package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjacktable/internal/account"
	"github.com/lox/blackjacktable/internal/blackjack"
	"github.com/lox/blackjacktable/internal/store"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client. A connection is
// unauthenticated until a register or login succeeds; the playerID is set at
// that point and required by every game operation.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, service *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with an authenticated player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID, empty if unauthenticated
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeRegister:
		var data CredentialsData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse register data")
			return
		}
		c.handleRegister(data)

	case MessageTypeLogin:
		var data CredentialsData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse login data")
			return
		}
		c.handleLogin(data)

	case MessageTypeStartGame:
		var data StartGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start game data")
			return
		}
		c.handleStartGame(data)

	case MessageTypeHit:
		c.handleAction(msg, "hit", c.service.Hit)

	case MessageTypeStand:
		c.handleAction(msg, "stand", c.service.Stand)

	case MessageTypeSurrender:
		c.handleAction(msg, "surrender", c.service.Surrender)

	case MessageTypeGetBalance:
		c.handleGetBalance()

	case MessageTypeLeaderboard:
		c.handleLeaderboard()

	case MessageTypeHistory:
		var data HistoryData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				c.sendError("invalid_message", "Failed to parse history data")
				return
			}
		}
		c.handleHistory(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

// sendServiceError maps a service error to a wire error code
func (c *Connection) sendServiceError(err error) {
	c.sendError(errorCode(err), err.Error())
}

// errorCode maps domain errors to stable wire codes clients can branch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, blackjack.ErrInvalidBet):
		return "invalid_bet"
	case errors.Is(err, ErrBetLimits):
		return "bet_limits"
	case errors.Is(err, account.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, blackjack.ErrGameFinished):
		return "game_finished"
	case errors.Is(err, store.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, account.ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, account.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrMissingCredentials):
		return "invalid_credentials"
	case errors.Is(err, account.ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

// authenticated returns the player ID, sending an error if there is none.
func (c *Connection) authenticated() (string, bool) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must register or login first")
		return "", false
	}
	return playerID, true
}

func (c *Connection) handleRegister(data CredentialsData) {
	c.logger.Info("Register request", "username", data.Username)

	a, err := c.service.Register(c.ctx, data.Username, data.Password)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	c.SetPlayer(a.ID)
	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: a.ID,
		Username: a.Username,
		Balance:  a.Balance,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLogin(data CredentialsData) {
	c.logger.Info("Login request", "username", data.Username)

	a, err := c.service.Login(c.ctx, data.Username, data.Password)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	c.SetPlayer(a.ID)
	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: a.ID,
		Username: a.Username,
		Balance:  a.Balance,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleStartGame(data StartGameData) {
	playerID, ok := c.authenticated()
	if !ok {
		return
	}
	c.logger.Info("Start game request", "player", playerID, "bet", data.BetAmount)

	g, a, err := c.service.StartGame(c.ctx, playerID, data.BetAmount)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	response, _ := NewMessage(MessageTypeGameState, GameStateFromGame(g, a.Balance))
	_ = c.SendMessage(response)
}

// handleAction runs a hit, stand or surrender transition and replies with the
// resulting game state.
func (c *Connection) handleAction(msg *Message, name string, fn func(context.Context, string, string) (*blackjack.Game, *account.Account, error)) {
	playerID, ok := c.authenticated()
	if !ok {
		return
	}

	var data SessionData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError("invalid_message", "Failed to parse "+name+" data")
		return
	}
	c.logger.Info("Game action", "player", playerID, "session", data.SessionID, "action", name)

	g, a, err := fn(c.ctx, playerID, data.SessionID)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	response, _ := NewMessage(MessageTypeGameState, GameStateFromGame(g, a.Balance))
	_ = c.SendMessage(response)
}

func (c *Connection) handleGetBalance() {
	playerID, ok := c.authenticated()
	if !ok {
		return
	}

	a, err := c.service.Account(c.ctx, playerID)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	response, _ := NewMessage(MessageTypeBalance, BalanceFromAccount(a))
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaderboard() {
	board, err := c.service.Leaderboard(c.ctx)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	response, _ := NewMessage(MessageTypeLeaderboardResult, LeaderboardFromAccounts(board))
	_ = c.SendMessage(response)
}

func (c *Connection) handleHistory(data HistoryData) {
	playerID, ok := c.authenticated()
	if !ok {
		return
	}

	games, err := c.service.History(c.ctx, playerID, data.Limit)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	entries := make([]GameStateData, 0, len(games))
	for _, g := range games {
		entries = append(entries, GameStateFromGame(g, 0))
	}
	response, _ := NewMessage(MessageTypeHistoryResult, HistoryResultData{Games: entries})
	_ = c.SendMessage(response)
}
