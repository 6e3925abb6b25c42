// internal/handlers/http.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// CreateLobbyHandler handles POST /create_lobby: generates a fresh lobby and
// returns its code.
func CreateLobbyHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !authorized(s, w, r) {
			return
		}

		l := s.Engine.Create()
		writeJSON(w, map[string]interface{}{"code": l.Code})
	}
}

// RehydrateLobbyHandler handles POST /rehydrate_lobby: loads the latest
// archive record for the requested code back into the live registry.
func RehydrateLobbyHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !authorized(s, w, r) {
			return
		}

		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
			http.Error(w, "missing lobby code", http.StatusBadRequest)
			return
		}

		l, err := s.Engine.Rehydrate(body.Code)
		if err != nil {
			http.Error(w, "no archive for lobby", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]interface{}{"code": l.Code})
	}
}

// GetLobbyHandler handles GET /lobby/{code}: a read-only snapshot of the
// lobby state in the same shape as the lobby_update broadcast.
func GetLobbyHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code := strings.TrimPrefix(r.URL.Path, "/lobby/")
		if code == "" || strings.Contains(code, "/") {
			http.Error(w, "missing lobby code", http.StatusBadRequest)
			return
		}

		payload, ok := s.Engine.StatePayload(code)
		if !ok {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}
		writeJSON(w, payload)
	}
}

// HealthHandler handles GET /health.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"ok": true})
	}
}

// authorized enforces the optional bearer-token check. With no verifier
// configured every request passes.
func authorized(s *Server, w http.ResponseWriter, r *http.Request) bool {
	if s.Verifier == nil {
		return true
	}
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return false
	}
	if _, err := s.Verifier.Verify(token); err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
