// Package gateway accepts websocket connections, authenticates them and bridges
// them to the relay.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/tileworld/internal/dependencies/idgen"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/protocol"
	"github.com/mcoot/tileworld/internal/relay"
)

// Relay is the part of the relay the gateway drives
type Relay interface {
	Dispatcher
	Join(ctx context.Context, session relay.Session, profile *model.Profile) error
}

// Handler serves the websocket endpoint
type Handler struct {
	auth     *Authenticator
	relay    Relay
	ids      idgen.Generator
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket Handler
func NewHandler(auth *Authenticator, relay Relay, ids idgen.Generator, cfg Config, logger *slog.Logger) *Handler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultConfig().MaxMessageSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = DefaultConfig().WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = DefaultConfig().PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	return &Handler{
		auth:   auth,
		relay:  relay,
		ids:    ids,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "gateway")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profile, authErr := h.auth.Authenticate(r.Context(), TokenFromRequest(r))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	if authErr != nil {
		h.reject(conn, authErr)
		return
	}

	id := model.ConnectionID(h.ids.NewID(""))
	client := newClient(id, profile.ID, conn, h.cfg, h.logger)
	go client.writePump()

	if err := h.relay.Join(r.Context(), client, profile); err != nil {
		h.logger.Warn("join failed",
			slog.String("connection_id", string(id)),
			slog.String("profile_id", string(profile.ID)),
			slog.String("error", err.Error()))
		// the join may have landed before the error; unknown ids are ignored
		h.relay.Leave(id)
		client.Close("join failed")
		return
	}

	h.logger.Info("websocket connected",
		slog.String("connection_id", string(id)),
		slog.String("profile_id", string(profile.ID)),
		slog.String("remote_addr", r.RemoteAddr))

	client.readPump(r.Context(), h.relay)
}

// reject tells the peer why it was refused, then closes with CloseRejected
func (h *Handler) reject(conn *websocket.Conn, err error) {
	defer conn.Close()

	var rejection *Rejection
	if !errors.As(err, &rejection) {
		rejection = RejectInvalidToken
	}
	h.logger.Info("websocket rejected",
		slog.String("code", rejection.Code),
		slog.String("remote_addr", conn.RemoteAddr().String()))

	deadline := time.Now().Add(h.cfg.WriteWait)
	if msg, err := protocol.Encode(protocol.TypeRejected, protocol.RejectedPayload{Code: rejection.Code, Reason: rejection.Reason}); err == nil {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.WriteMessage(websocket.TextMessage, msg)
	}
	closeMsg := websocket.FormatCloseMessage(CloseRejected, rejection.Reason)
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, deadline)
}
