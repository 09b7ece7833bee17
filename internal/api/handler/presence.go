package handler

import (
	"net/http"

	"github.com/mcoot/tileworld/internal/api/response"
	"github.com/mcoot/tileworld/internal/dependencies/clock"
	"github.com/mcoot/tileworld/internal/presence"
)

// PresenceHandler exposes read-only views of the live world
type PresenceHandler struct {
	registry presence.Registry
	clock    clock.Clock
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(registry presence.Registry, clock clock.Clock) *PresenceHandler {
	return &PresenceHandler{
		registry: registry,
		clock:    clock,
	}
}

// Online handles GET /api/v1/players/online
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	players := h.registry.All()
	response.JSON(w, http.StatusOK, response.OnlineResponse{
		Count:   len(players),
		Players: players,
	})
}

// Health handles GET /api/v1/health
func (h *PresenceHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:    "ok",
		Timestamp: h.clock.Now().UTC(),
	})
}
