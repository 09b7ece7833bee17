package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/tileworld/internal/protocol"
)

// WSPath is the websocket endpoint relative to the server base URL
const WSPath = "/api/v1/ws"

const writeWait = 10 * time.Second

// RejectedError is returned when the server refuses the connection
type RejectedError struct {
	Code   string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("connection rejected: %s (%s)", e.Reason, e.Code)
}

// Conn is a client websocket connection. Send is safe for concurrent use;
// Read must only be called from one goroutine.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
}

// WebsocketURL converts an http(s) server base URL into the websocket endpoint URL
func WebsocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path += WSPath
	return u.String(), nil
}

// Dial connects to the server's websocket endpoint with a bearer token
func Dial(ctx context.Context, baseURL, token string) (*Conn, error) {
	wsURL, err := WebsocketURL(baseURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Conn{ws: ws}, nil
}

// Send encodes and writes one client event
func (c *Conn) Send(eventType string, payload any) error {
	msg, err := protocol.Encode(eventType, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

// Read blocks for the next server event. A rejected event is returned as *RejectedError.
func (c *Conn) Read() (protocol.Envelope, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, err
	}

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return protocol.Envelope{}, fmt.Errorf("decode server event: %w", err)
	}
	if env.Type == protocol.TypeRejected {
		var p protocol.RejectedPayload
		_ = json.Unmarshal(env.Payload, &p)
		return env, &RejectedError{Code: p.Code, Reason: p.Reason}
	}
	return env, nil
}

// Run reads events into the reconciler until the connection ends and returns
// the error that ended it; a server close is a *websocket.CloseError (see CloseReason).
// onEvent, if set, is called after each event has been applied.
func (c *Conn) Run(r *Reconciler, onEvent func(protocol.Envelope)) error {
	for {
		env, err := c.Read()
		if err != nil {
			return err
		}
		if err := r.Apply(env); err != nil {
			return err
		}
		if onEvent != nil {
			onEvent(env)
		}
	}
}

// CloseReason extracts the server's close reason from a Read error
func CloseReason(err error) (code int, reason string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

// IsNormalClose reports whether err is the server ending the session cleanly
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure)
}

// Close sends a normal close frame and closes the connection
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.ws.Close()
}
