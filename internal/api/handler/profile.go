package handler

import (
	"net/http"

	"github.com/mcoot/tileworld/internal/api/apierr"
	"github.com/mcoot/tileworld/internal/api/middleware"
	"github.com/mcoot/tileworld/internal/api/request"
	"github.com/mcoot/tileworld/internal/api/response"
	"github.com/mcoot/tileworld/internal/services/auth"
)

// ProfileHandler handles registration, login and profile endpoints
type ProfileHandler struct {
	authService *auth.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(authService *auth.Service) *ProfileHandler {
	return &ProfileHandler{
		authService: authService,
	}
}

// Register handles POST /api/v1/auth/register
func (h *ProfileHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Register(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/auth/login
func (h *ProfileHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/profiles/me
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	profile := middleware.MustGetProfile(r.Context())
	response.JSON(w, http.StatusOK, response.ProfileFromModel(profile))
}

// UpdateAppearance handles PUT /api/v1/profiles/me/appearance.
// Only the stored appearance changes; live sessions keep theirs until they send appearanceChange.
func (h *ProfileHandler) UpdateAppearance(w http.ResponseWriter, r *http.Request) {
	profile := middleware.MustGetProfile(r.Context())

	var req request.UpdateAppearanceRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if req.Appearance == nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("appearance is required"))
		return
	}

	updated, err := h.authService.UpdateAppearance(r.Context(), profile.ID, *req.Appearance)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromModel(updated))
}
