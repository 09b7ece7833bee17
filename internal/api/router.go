package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tileworld/internal/api/apierr"
	"github.com/mcoot/tileworld/internal/api/handler"
	"github.com/mcoot/tileworld/internal/api/middleware"
	"github.com/mcoot/tileworld/internal/dependencies/clock"
	httpmw "github.com/mcoot/tileworld/internal/middleware"
	"github.com/mcoot/tileworld/internal/presence"
	"github.com/mcoot/tileworld/internal/services/auth"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Clock       clock.Clock
	AuthService *auth.Service
	Registry    presence.Registry
	WSHandler   http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	// Create handlers
	profileHandler := handler.NewProfileHandler(cfg.AuthService)
	presenceHandler := handler.NewPresenceHandler(cfg.Registry, cfg.Clock)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := httpmw.Logging(cfg.Logger)
	recoveryMiddleware := httpmw.Recovery(cfg.Logger, apierr.WritePanic)

	// API subrouter with common middleware; recovery sits inside logging so
	// panics are logged with the request id and the 500 they produced
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Auth routes (no token required)
	api.HandleFunc("/auth/register", profileHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", profileHandler.Login).Methods(http.MethodPost)

	// Protected profile routes
	profiles := api.PathPrefix("/profiles").Subrouter()
	profiles.Use(authMiddleware)
	profiles.HandleFunc("/me", profileHandler.GetMe).Methods(http.MethodGet)
	profiles.HandleFunc("/me/appearance", profileHandler.UpdateAppearance).Methods(http.MethodPut)

	// Presence routes (no auth)
	api.HandleFunc("/players/online", presenceHandler.Online).Methods(http.MethodGet)
	api.HandleFunc("/health", presenceHandler.Health).Methods(http.MethodGet)

	// Realtime socket; the gateway does its own token check before upgrading
	if cfg.WSHandler != nil {
		api.Handle("/ws", cfg.WSHandler).Methods(http.MethodGet)
	}

	return r
}
