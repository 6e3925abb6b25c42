// internal/handlers/server.go
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/tyatyapatya/GUH2025/internal/auth"
	"github.com/tyatyapatya/GUH2025/internal/broadcast"
	"github.com/tyatyapatya/GUH2025/internal/lobby"
)

// Server bundles the services the HTTP and websocket handlers operate on.
// Constructed once at startup and injected; there is no package-level state.
type Server struct {
	Engine *lobby.Engine
	Fanout *broadcast.Fanout
	Logger *logrus.Logger

	// Verifier, when non-nil, gates the HTTP mutation endpoints on a valid
	// bearer token. The realtime path is never gated.
	Verifier *auth.Verifier
}
