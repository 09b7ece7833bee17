package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/tileworld/internal/api"
	"github.com/mcoot/tileworld/internal/api/apierr"
	"github.com/mcoot/tileworld/internal/api/response"
	"github.com/mcoot/tileworld/internal/dependencies/mocks"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/presence"
	"github.com/mcoot/tileworld/internal/services/auth"
	"github.com/mcoot/tileworld/internal/storage/memory"
	"github.com/mcoot/tileworld/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler  http.Handler
	storage  *memory.Storage
	auth     *auth.Service
	registry *presence.MemoryRegistry
	clock    *mocks.MockClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.New()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	authService := auth.New(store, clk, mocks.NewMockIDs(), auth.DefaultConfig())
	registry := presence.NewRegistry()

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Clock:       clk,
		AuthService: authService,
		Registry:    registry,
		WSHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	})

	return &testServer{
		handler:  router,
		storage:  store,
		auth:     authService,
		registry: registry,
		clock:    clk,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var health response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Timestamp.Equal(ts.clock.Now()))
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	// Register
	registerBody := map[string]string{
		"username":     "alice",
		"password":     "secret123",
		"display_name": "Alice",
	}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", registerBody, "")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	var registerResp response.AuthResponse
	err := json.Unmarshal(rr.Body.Bytes(), &registerResp)
	require.NoError(t, err)
	assert.Equal(t, "Alice", registerResp.Profile.DisplayName)
	assert.Equal(t, model.DefaultAppearance(), registerResp.Profile.Appearance)
	assert.Nil(t, registerResp.Profile.LastPosition)
	assert.NotEmpty(t, registerResp.Token)
	assert.Equal(t, ts.clock.Now().Add(7*24*time.Hour).Unix(), registerResp.ExpiresAt.Unix())

	// Login
	loginBody := map[string]string{
		"username": "alice",
		"password": "secret123",
	}
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", loginBody, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	err = json.Unmarshal(rr.Body.Bytes(), &loginResp)
	require.NoError(t, err)
	assert.Equal(t, registerResp.Profile.ID, loginResp.Profile.ID)
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"bad json", "not an object", http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing username", map[string]string{"password": "secret123"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing password", map[string]string{"username": "alice"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"short username", map[string]string{"username": "al", "password": "secret123"}, http.StatusBadRequest, "INVALID_USERNAME"},
		{"weak password", map[string]string{"username": "alice", "password": "12345"}, http.StatusBadRequest, "WEAK_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rr := ts.request(http.MethodPost, "/api/v1/auth/register", tt.body, "")
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, errorCode(t, rr))
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ts := newTestServer(t)
	registerProfile(t, ts, "alice")

	body := map[string]string{"username": "alice", "password": "another1"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "USERNAME_EXISTS", errorCode(t, rr))
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	registerProfile(t, ts, "alice")

	body := map[string]string{"username": "alice", "password": "wrong-one"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/login", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rr))

	body = map[string]string{"username": "nobody", "password": "secret123"}
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	token := registerProfile(t, ts, "bob")

	rr := ts.request(http.MethodGet, "/api/v1/profiles/me", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var meResp response.Profile
	err := json.Unmarshal(rr.Body.Bytes(), &meResp)
	require.NoError(t, err)
	assert.Equal(t, "bob", meResp.Username)
	assert.Equal(t, "bob", meResp.DisplayName)
}

func TestUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/profiles/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/profiles/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// token outlives its 7 days
	token := registerProfile(t, ts, "carol")
	ts.clock.Advance(8 * 24 * time.Hour)
	rr = ts.request(http.MethodGet, "/api/v1/profiles/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateAppearance(t *testing.T) {
	ts := newTestServer(t)
	token := registerProfile(t, ts, "dave")

	look := model.Appearance{SkinColor: 9, HairStyle: 2, HairColor: 7, ShirtColor: 7, PantsColor: 3, HatStyle: 3}
	rr := ts.request(http.MethodPut, "/api/v1/profiles/me/appearance", map[string]any{"appearance": look}, token)
	require.Equal(t, http.StatusOK, rr.Code)

	var updated response.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, look, updated.Appearance)

	stored, err := ts.storage.GetProfileByUsername(t.Context(), "dave")
	require.NoError(t, err)
	assert.Equal(t, look, stored.Appearance)

	bad := look
	bad.HatStyle = 4
	rr = ts.request(http.MethodPut, "/api/v1/profiles/me/appearance", map[string]any{"appearance": bad}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_APPEARANCE", errorCode(t, rr))

	rr = ts.request(http.MethodPut, "/api/v1/profiles/me/appearance", map[string]any{}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPlayersOnline(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/online", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var empty response.OnlineResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &empty))
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Players)

	require.NoError(t, ts.registry.Register("c1", model.PlayerState{ID: "c1", DisplayName: "Alice", Facing: model.FacingDown}))
	require.NoError(t, ts.registry.Register("c2", model.PlayerState{ID: "c2", DisplayName: "Bob", Facing: model.FacingUp}))

	rr = ts.request(http.MethodGet, "/api/v1/players/online", nil, "")
	var online response.OnlineResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &online))
	assert.Equal(t, 2, online.Count)
	assert.Equal(t, "Alice", online.Players[0].DisplayName)
	assert.Equal(t, "Bob", online.Players[1].DisplayName)
}

func TestWebsocketRouteMounted(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/ws", nil, "")
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestPanicBecomesInternalError(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		AuthService: auth.New(memory.New(), mocks.NewMockClock(time.Now()), mocks.NewMockIDs(), auth.DefaultConfig()),
		Registry:    presence.NewRegistry(),
		WSHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}),
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rr))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

// Helper functions

func registerProfile(t *testing.T, ts *testServer, username string) string {
	t.Helper()

	body := map[string]string{"username": username, "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)

	return resp.Token
}
