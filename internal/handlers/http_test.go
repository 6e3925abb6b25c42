// internal/handlers/http_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyatyapatya/GUH2025/internal/archive"
	"github.com/tyatyapatya/GUH2025/internal/auth"
	"github.com/tyatyapatya/GUH2025/internal/broadcast"
	"github.com/tyatyapatya/GUH2025/internal/geo"
	"github.com/tyatyapatya/GUH2025/internal/lobby"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	fanout := broadcast.NewFanout(logger)
	archives := archive.NewStore(t.TempDir())
	engine := lobby.NewEngine(lobby.NewStore(), fanout, nil, archives, time.Minute, logger)
	return &Server{Engine: engine, Fanout: fanout, Logger: logger}
}

func TestCreateLobby(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/create_lobby", nil)
	w := httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{8}$`), resp.Code)

	_, ok := s.Engine.StatePayload(resp.Code)
	assert.True(t, ok, "created lobby is live")
}

func TestCreateLobbyMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/create_lobby", nil)
	w := httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGetLobby(t *testing.T) {
	s := newTestServer(t)
	l := s.Engine.Create()
	require.True(t, s.Engine.Join(l.Code, "alice", "Alice", uuid.New()))
	s.Engine.AddPoint(l.Code, "alice", geo.Point{Lat: 51.5, Lon: -0.13})

	req := httptest.NewRequest(http.MethodGet, "/lobby/"+l.Code, nil)
	w := httptest.NewRecorder()
	GetLobbyHandler(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, l.Code, payload["code"])
	assert.Equal(t, []interface{}{"alice"}, payload["participants"])
	assert.Nil(t, payload["geometricMidpoint"])
}

func TestGetLobbyNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/lobby/NOSUCH99", nil)
	w := httptest.NewRecorder()
	GetLobbyHandler(s).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRehydrateLobby(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	fanout := broadcast.NewFanout(logger)
	archives := archive.NewStore(t.TempDir())
	engine := lobby.NewEngine(lobby.NewStore(), fanout, nil, archives, 30*time.Millisecond, logger)
	s := &Server{Engine: engine, Fanout: fanout, Logger: logger}

	l := s.Engine.Create()
	code := l.Code
	token := uuid.New()
	require.True(t, s.Engine.Join(code, "alice", "", token))
	s.Engine.AddPoint(code, "alice", geo.Point{Lat: 48.85, Lon: 2.35})

	s.Engine.Disconnect(token)
	require.Eventually(t, func() bool {
		_, live := s.Engine.StatePayload(code)
		return !live
	}, time.Second, 10*time.Millisecond, "lobby should archive out of the registry")

	body := bytes.NewBufferString(`{"code":"` + code + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/rehydrate_lobby", body)
	w := httptest.NewRecorder()
	RehydrateLobbyHandler(s).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	payload, live := s.Engine.StatePayload(code)
	require.True(t, live)
	points := payload["points"].(map[string]geo.Point)
	assert.Equal(t, geo.Point{Lat: 48.85, Lon: 2.35}, points["alice"])
}

func TestRehydrateLobbyNotFound(t *testing.T) {
	s := newTestServer(t)
	body := bytes.NewBufferString(`{"code":"NOSUCH99"}`)
	req := httptest.NewRequest(http.MethodPost, "/rehydrate_lobby", body)
	w := httptest.NewRecorder()
	RehydrateLobbyHandler(s).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	HealthHandler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestCreateLobbyWithVerifier(t *testing.T) {
	s := newTestServer(t)
	signer, verifier, err := auth.NewEphemeralPair()
	require.NoError(t, err)
	s.Verifier = verifier

	// No token.
	req := httptest.NewRequest(http.MethodPost, "/create_lobby", nil)
	w := httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token.
	req = httptest.NewRequest(http.MethodPost, "/create_lobby", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Valid token.
	token, err := signer.CreateJWT("alice")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/create_lobby", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
