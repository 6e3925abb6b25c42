// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/tyatyapatya/GUH2025/internal/archive"
	"github.com/tyatyapatya/GUH2025/internal/auth"
	"github.com/tyatyapatya/GUH2025/internal/broadcast"
	"github.com/tyatyapatya/GUH2025/internal/handlers"
	"github.com/tyatyapatya/GUH2025/internal/lobby"
	"github.com/tyatyapatya/GUH2025/internal/middleware"
	"github.com/tyatyapatya/GUH2025/internal/places"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	archiveDir := getEnv("ARCHIVE_DIR", "lobby_archives")
	archiveDelay := time.Duration(getEnvInt("ARCHIVE_DELAY", 20)) * time.Second

	var cache *places.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		var err error
		cache, err = places.NewCache(addr, getEnvInt("REDIS_DB", 0), logger)
		if err != nil {
			logger.Warnf("redis unavailable, resolver runs uncached: %v", err)
		}
	}
	resolver := places.NewClient(os.Getenv("PLACES_API_KEY"), os.Getenv("GEMINI_API_KEY"), cache, logger)

	store := lobby.NewStore()
	fanout := broadcast.NewFanout(logger)
	archives := archive.NewStore(archiveDir)
	engine := lobby.NewEngine(store, fanout, resolver, archives, archiveDelay, logger)

	srv := &handlers.Server{
		Engine: engine,
		Fanout: fanout,
		Logger: logger,
	}
	if keyPath := os.Getenv("AUTH_PUBLIC_KEY_PATH"); keyPath != "" {
		verifier, err := auth.NewVerifierFromPath(keyPath)
		if err != nil {
			log.Fatalf("failed to load auth public key: %v", err)
		}
		srv.Verifier = verifier
	}

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("/create_lobby", logged(handlers.CreateLobbyHandler(srv)))
	mux.Handle("/rehydrate_lobby", logged(handlers.RehydrateLobbyHandler(srv)))
	mux.Handle("/lobby/", logged(handlers.GetLobbyHandler(srv)))
	mux.HandleFunc("/health", handlers.HealthHandler())
	mux.Handle("/ws", handlers.WSHandler(srv))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s (archive dir %s, delay %s)", addr, archiveDir, archiveDelay)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else a default.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
