package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mcoot/tileworld/internal/api/apierr"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/services/auth"
)

type contextKey string

const profileContextKey contextKey = "profile"

// Authenticator resolves a bearer token to a profile
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Profile, error)
}

// Auth creates authentication middleware
func Auth(authService Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			profile, err := authService.Authenticate(r.Context(), token)
			if err != nil {
				// A valid token for a deleted profile is still unauthenticated
				if errors.Is(err, model.ErrProfileNotFound) {
					err = auth.ErrInvalidToken
				}
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), profileContextKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// GetProfile returns the authenticated profile from the request context
func GetProfile(ctx context.Context) *model.Profile {
	profile, _ := ctx.Value(profileContextKey).(*model.Profile)
	return profile
}

// MustGetProfile returns the authenticated profile or panics
func MustGetProfile(ctx context.Context) *model.Profile {
	profile := GetProfile(ctx)
	if profile == nil {
		panic("no profile in context - auth middleware not applied?")
	}
	return profile
}
