package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants for the client-server protocol
const (
	// Client to server messages
	MessageTypeRegister    MessageType = "register"
	MessageTypeLogin       MessageType = "login"
	MessageTypeStartGame   MessageType = "start_game"
	MessageTypeHit         MessageType = "hit"
	MessageTypeStand       MessageType = "stand"
	MessageTypeSurrender   MessageType = "surrender"
	MessageTypeGetBalance  MessageType = "get_balance"
	MessageTypeLeaderboard MessageType = "leaderboard"
	MessageTypeHistory     MessageType = "history"

	// Server to client messages
	MessageTypeAuthResponse      MessageType = "auth_response"
	MessageTypeGameState         MessageType = "game_state"
	MessageTypeBalance           MessageType = "balance"
	MessageTypeLeaderboardResult MessageType = "leaderboard_result"
	MessageTypeHistoryResult     MessageType = "history_result"
	MessageTypeError             MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
