package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqrrr/gamehub/internal/api"
	"github.com/sqrrr/gamehub/internal/api/apierr"
	"github.com/sqrrr/gamehub/internal/api/response"
	"github.com/sqrrr/gamehub/internal/factory"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/auth"
	"github.com/sqrrr/gamehub/internal/socket"
	"github.com/sqrrr/gamehub/internal/storage/memory"
)

var audioBytes = []byte("ID3-not-really-an-mp3-but-long-enough-for-ranges")

// testServer creates a test server with all dependencies
type testServer struct {
	handler  http.Handler
	app      *factory.TestApp
	audioDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app := factory.NewTestAppWithStorage(memory.New(), factory.Config{
		AuthConfig: auth.Config{
			SessionDuration: time.Hour,
			AdminUsernames:  []string{"root"},
		},
	})
	t.Cleanup(app.StopRealtime)

	audioDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(audioDir, "zelda.mp3"), audioBytes, 0o644))

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.Auth,
		Ledger:      app.Ledger,
		Economy:     app.Economy,
		Registry:    app.Registry,
		Rounds:      app.Rounds,
		Gate:        app.Gate,
		Socket:      app.Socket,
		AudioDir:    audioDir,
	})

	return &testServer{
		handler:  router,
		app:      app,
		audioDir: audioDir,
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

func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players/register",
		map[string]string{"username": username, "password": "secret123"}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.SessionToken
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
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	token := ts.register(t, "alice")
	assert.NotEmpty(t, token)

	// Login
	rr := ts.request(http.MethodPost, "/api/v1/players/login",
		map[string]string{"username": "alice", "password": "secret123"}, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	assert.Equal(t, "alice", loginResp.Username)
	assert.NotEqual(t, token, loginResp.SessionToken)

	// Wrong password
	rr = ts.request(http.MethodPost, "/api/v1/players/login",
		map[string]string{"username": "alice", "password": "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{"missing username", map[string]string{"password": "secret123"}, http.StatusBadRequest, apierr.CodeInvalidRequest},
		{"bad username", map[string]string{"username": "a!", "password": "secret123"}, http.StatusBadRequest, apierr.CodeInvalidUsername},
		{"weak password", map[string]string{"username": "bob", "password": "123"}, http.StatusBadRequest, apierr.CodeWeakPassword},
		{"taken", map[string]string{"username": "alice", "password": "secret123"}, http.StatusConflict, apierr.CodeUsernameExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/players/register", tt.body, "")
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, errorCode(t, rr))
		})
	}
}

func TestGetMeAndLogout(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	var me response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, model.StartingCoins, me.Coins)
	assert.Zero(t, me.Debt)

	rr = ts.request(http.MethodPost, "/api/v1/players/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, "not-a-session")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")
	ts.register(t, "bob")

	_, err := ts.app.Ledger.Update("bob", func(u *model.User) error {
		u.Coins = 5000
		return nil
	})
	require.NoError(t, err)

	rr := ts.request(http.MethodGet, "/api/v1/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var board response.Leaderboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &board))
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "bob", board.Entries[0].Username)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, "alice", board.Entries[1].Username)

	rr = ts.request(http.MethodGet, "/api/v1/leaderboard?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &board))
	assert.Len(t, board.Entries, 1)

	for _, bad := range []string{"0", "101", "ten"} {
		rr = ts.request(http.MethodGet, "/api/v1/leaderboard?limit="+bad, nil, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}
}

func TestAdminPenalty(t *testing.T) {
	ts := newTestServer(t)
	rootToken := ts.register(t, "root")
	aliceToken := ts.register(t, "alice")

	_, err := ts.app.Ledger.Update("alice", func(u *model.User) error {
		u.Debt = 500
		return nil
	})
	require.NoError(t, err)

	// Non-admins are refused
	rr := ts.request(http.MethodPost, "/api/v1/admin/players/alice/penalty", nil, aliceToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/admin/players/alice/penalty", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/admin/players/alice/penalty", nil, rootToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var bal response.Balance
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bal))
	assert.Equal(t, "alice", bal.Username)
	assert.Zero(t, bal.Coins)
	assert.Equal(t, int64(500), bal.Debt)

	rr = ts.request(http.MethodPost, "/api/v1/admin/players/nobody/penalty", nil, rootToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLobbies(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/lobbies", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var list response.Lobbies
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Lobbies, 1)
	assert.Equal(t, string(model.SharedLobbyCode), list.Lobbies[0].Code)

	rr = ts.request(http.MethodGet, "/api/v1/lobbies/vgm0", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/lobbies/NOPE", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeLobbyNotFound, errorCode(t, rr))
}

func TestAudioStreamsThroughTokens(t *testing.T) {
	ts := newTestServer(t)
	token := ts.app.Gate.Issue("zelda.mp3")

	rr := ts.request(http.MethodGet, "/audio/"+token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/mpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, audioBytes, rr.Body.Bytes())

	// Seeking works through range requests
	req := httptest.NewRequest(http.MethodGet, "/audio/"+token, nil)
	req.Header.Set("Range", "bytes=0-3")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, audioBytes[:4], rr.Body.Bytes())
}

func TestAudioRejectsUnknownAndExpiredTokens(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/audio/not-a-token", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	token := ts.app.Gate.Issue("zelda.mp3")
	ts.app.MockClock.Advance(time.Hour)
	rr = ts.request(http.MethodGet, "/audio/"+token, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// A token for a missing or escaping file looks the same as a bad token
	for _, ref := range []string{"missing.mp3", "../outside.mp3"} {
		rr = ts.request(http.MethodGet, "/audio/"+ts.app.Gate.Issue(ref), nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, ref)
	}
}

func TestAudioIsNotServedByName(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/assets/audio/zelda.mp3", nil, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSocketConnect(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")

	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg socket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, model.EventConnected, msg.Event)

	var hello model.ConnectedPayload
	require.NoError(t, json.Unmarshal(msg.Data, &hello))
	assert.Equal(t, "alice", hello.Username)
	assert.NotEmpty(t, hello.ConnID)

	require.NoError(t, conn.WriteJSON(socket.Envelope{Event: socket.ActionGetBalance}))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, model.EventBalance, msg.Event)

	var bal model.Balance
	require.NoError(t, json.Unmarshal(msg.Data, &bal))
	assert.Equal(t, model.StartingCoins, bal.Coins)
}

func TestSocketGuestCannotTransact(t *testing.T) {
	ts := newTestServer(t)

	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/socket", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg socket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, model.EventConnected, msg.Event)

	require.NoError(t, conn.WriteJSON(socket.Envelope{
		Event: socket.ActionSlotsSpin,
		Data:  json.RawMessage(`{"bet":10}`),
	}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, model.EventType(fmt.Sprintf("%sError", model.GameSlots)), msg.Event)
}

func TestSocketStopsTransactingAfterLogout(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")

	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg socket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, model.EventConnected, msg.Event)

	rr := ts.request(http.MethodPost, "/api/v1/players/logout", nil, token)
	require.Equal(t, http.StatusNoContent, rr.Code)

	require.NoError(t, conn.WriteJSON(socket.Envelope{
		Event: socket.ActionSlotsSpin,
		Data:  json.RawMessage(`{"bet":10}`),
	}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, model.EventType(fmt.Sprintf("%sError", model.GameSlots)), msg.Event)

	var reason model.ReasonPayload
	require.NoError(t, json.Unmarshal(msg.Data, &reason))
	assert.Equal(t, model.ReasonNotAuthenticated, reason.Reason)
}
