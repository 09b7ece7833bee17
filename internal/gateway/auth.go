package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/services/auth"
	"github.com/mcoot/tileworld/internal/storage"
)

// CloseRejected is the websocket close code sent after a failed handshake
const CloseRejected = 4401

// Rejection is why a connection attempt was refused
type Rejection struct {
	Code   string
	Reason string
}

func (r *Rejection) Error() string {
	return r.Code + ": " + r.Reason
}

// Rejections
var (
	RejectMissingToken = &Rejection{Code: "missing-token", Reason: "no token"}
	RejectInvalidToken = &Rejection{Code: "invalid-token", Reason: "invalid token"}
	RejectUnknownUser  = &Rejection{Code: "unknown-user", Reason: "user not found"}
)

// TokenVerifier checks an identity token's signature and expiry
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticator resolves the token presented on a handshake to a durable profile
type Authenticator struct {
	verifier      TokenVerifier
	store         storage.ProfileStore
	lookupTimeout time.Duration
	logger        *slog.Logger
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(verifier TokenVerifier, store storage.ProfileStore, lookupTimeout time.Duration, logger *slog.Logger) *Authenticator {
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	return &Authenticator{
		verifier:      verifier,
		store:         store,
		lookupTimeout: lookupTimeout,
		logger:        logger,
	}
}

// Authenticate returns the caller's profile or a *Rejection
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*model.Profile, error) {
	if token == "" {
		return nil, RejectMissingToken
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		return nil, RejectInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()

	profile, err := a.store.GetProfile(ctx, claims.SubjectID())
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			return nil, RejectUnknownUser
		}
		a.logger.Warn("profile lookup failed during handshake",
			slog.String("profile_id", string(claims.SubjectID())),
			slog.String("error", err.Error()))
		return nil, RejectInvalidToken
	}
	return profile, nil
}

// TokenFromRequest reads a bearer token from the Authorization header,
// falling back to the token query parameter browsers must use for websockets.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
