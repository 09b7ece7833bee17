package request

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/tileworld/internal/api/apierr"
	"github.com/mcoot/tileworld/internal/model"
)

// RegisterRequest is the request body for registering a profile
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateAppearanceRequest is the request body for changing the stored appearance
type UpdateAppearanceRequest struct {
	Appearance *model.Appearance `json:"appearance"`
}

// maxBodyBytes caps request bodies; every API body is a small JSON object
const maxBodyBytes = 64 << 10

// Decode reads a JSON body into v. Any failure is reported as an invalid request.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}
