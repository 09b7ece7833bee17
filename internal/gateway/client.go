package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/protocol"
)

// Config controls websocket transport behaviour
type Config struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration
	// Time allowed to read the next pong from the peer
	PongWait time.Duration
	// Time between pings. Must be less than PongWait.
	PingPeriod time.Duration
	// Buffer size for outgoing messages
	SendBuffer int
	// Largest inbound frame accepted
	MaxMessageSize int64
}

// DefaultConfig returns default transport configuration
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		SendBuffer:     256,
		MaxMessageSize: 4096,
	}
}

// Dispatcher receives decoded client events
type Dispatcher interface {
	Dispatch(ctx context.Context, id model.ConnectionID, in protocol.Inbound) error
	Leave(id model.ConnectionID)
}

// Client is one authenticated websocket connection
type Client struct {
	id        model.ConnectionID
	profileID model.ProfileID
	conn      *websocket.Conn
	cfg       Config
	logger    *slog.Logger

	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	closeReason string
	connectedAt time.Time
}

func newClient(id model.ConnectionID, profileID model.ProfileID, conn *websocket.Conn, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		id:          id,
		profileID:   profileID,
		conn:        conn,
		cfg:         cfg,
		logger:      logger.With(slog.String("connection_id", string(id))),
		send:        make(chan []byte, cfg.SendBuffer),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

func (c *Client) ID() model.ConnectionID {
	return c.id
}

// Send queues a frame without blocking. Returns false if the buffer is full or the client closed.
func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close asks the write pump to send a close frame and hang up
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.done)
	})
}

// writePump drains the send buffer and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("write failed", slog.String("error", err.Error()))
				c.Close("")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", slog.String("error", err.Error()))
				c.Close("")
				return
			}

		case <-c.done:
			c.flush()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.closeReason)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

// flush writes whatever is still buffered so a closing client sees its last events
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readPump decodes frames and hands them to the dispatcher until the peer goes away
func (c *Client) readPump(ctx context.Context, d Dispatcher) {
	defer func() {
		d.Leave(c.id)
		c.Close("")
		c.logger.Info("websocket disconnected",
			slog.String("profile_id", string(c.profileID)),
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Debug("non-text frame dropped", slog.Int("message_type", messageType))
			continue
		}

		in, err := protocol.Decode(data)
		if err != nil {
			c.logger.Debug("malformed event dropped", slog.String("error", err.Error()))
			continue
		}
		if err := d.Dispatch(ctx, c.id, in); err != nil {
			if !errors.Is(err, context.Canceled) {
				c.logger.Debug("dispatch failed", slog.String("error", err.Error()))
			}
			return
		}
	}
}
