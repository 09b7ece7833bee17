package response

import (
	"time"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/services/auth"
)

// Profile represents a profile in API responses. The password hash never leaves the server.
type Profile struct {
	ID           string           `json:"id"`
	Username     string           `json:"username"`
	DisplayName  string           `json:"display_name"`
	Appearance   model.Appearance `json:"appearance"`
	LastPosition *model.Position  `json:"last_position"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ProfileFromModel converts a model.Profile to a response Profile
func ProfileFromModel(p *model.Profile) Profile {
	return Profile{
		ID:           string(p.ID),
		Username:     p.Username,
		DisplayName:  p.DisplayName,
		Appearance:   p.Appearance,
		LastPosition: p.LastPosition,
		CreatedAt:    p.CreatedAt,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Profile   Profile   `json:"profile"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Profile:   ProfileFromModel(&s.Profile),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// OnlineResponse lists the players currently connected
type OnlineResponse struct {
	Count   int                 `json:"count"`
	Players []model.PlayerState `json:"players"`
}

// Health is the liveness payload
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
