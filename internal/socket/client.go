package socket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/sqrrr/gamehub/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed between pongs before the peer is considered gone
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

// Config holds per-connection limits
type Config struct {
	// RateLimit is the sustained number of actions per second a connection may send
	RateLimit float64
	// RateBurst is how many actions may arrive back to back
	RateBurst int
	// SendBuffer is the outgoing queue length per connection
	SendBuffer int
	// MaxMessageSize caps a single inbound frame in bytes
	MaxMessageSize int64
	// AllowedOrigins restricts the websocket handshake; empty allows any origin
	AllowedOrigins []string
}

// DefaultConfig returns default socket limits
func DefaultConfig() Config {
	return Config{
		RateLimit:      10,
		RateBurst:      20,
		SendBuffer:     256,
		MaxMessageSize: 4096,
	}
}

// Client is one socket connection. Its fields other than send are only
// touched by the connection's own read loop.
type Client struct {
	id          model.ConnID
	username    string // empty for guests
	token       string // session the username was proven with
	conn        *websocket.Conn
	send        chan []byte
	limiter     *rate.Limiter
	throttled   bool
	lobby       model.LobbyCode
	connectedAt time.Time
	logger      *slog.Logger
}

// NewClient creates a client for an upgraded connection. conn may be nil
// when the client is driven directly, as in tests.
func NewClient(id model.ConnID, username string, conn *websocket.Conn, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		id:          id,
		username:    username,
		conn:        conn,
		send:        make(chan []byte, cfg.SendBuffer),
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("conn_id", string(id)),
			slog.String("username", username),
		),
	}
}

// ID returns the connection id
func (c *Client) ID() model.ConnID { return c.id }

// Username returns the authenticated user, or empty for a guest
func (c *Client) Username() string { return c.username }

// Lobby returns the code of the lobby the connection sits in
func (c *Client) Lobby() model.LobbyCode { return c.lobby }

// Outbox exposes the send queue for callers that drive a client without a socket
func (c *Client) Outbox() <-chan []byte { return c.send }

// readPump reads actions until the peer goes away, handing each one to
// handle in arrival order
func (c *Client) readPump(ctx context.Context, maxSize int64, handle func(context.Context, *Client, Envelope)) {
	c.conn.SetReadLimit(maxSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("socket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.logger.Debug("socket frame ignored - not an action envelope")
			continue
		}
		handle(ctx, c, env)
	}
}

// writePump drains the send queue to the peer and keeps the connection alive
// with pings. It returns once the hub closes the queue or a write fails.
func (c *Client) writePump() {
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
				// Hub closed the queue
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Debug("socket write failed", slog.String("error", err.Error()))
				}
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
