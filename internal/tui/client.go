package tui

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjacktable/internal/server"
)

// Client is the WebSocket side of the TUI. It owns the connection and feeds
// server messages to the Bubble Tea program through the Incoming channel.
type Client struct {
	conn     *websocket.Conn
	logger   *log.Logger
	incoming chan *server.Message
	done     chan struct{}
}

// Dial connects to the server's WebSocket endpoint and starts the read loop.
func Dial(url string, logger *log.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		logger:   logger.WithPrefix("client"),
		incoming: make(chan *server.Message, 64),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.incoming)

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Debug("Connection read failed", "error", err)
			}
			return
		}
		c.incoming <- &msg
	}
}

// Send marshals and writes a message to the server.
func (c *Client) Send(messageType server.MessageType, data interface{}) error {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// Incoming returns the channel of server messages. It is closed when the
// connection drops.
func (c *Client) Incoming() <-chan *server.Message {
	return c.incoming
}

// Close shuts the connection down.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}
