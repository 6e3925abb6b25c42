// internal/lobby/store.go
package lobby

import (
	"math/rand"
	"sync"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

// Store manages live lobbies in memory only, keyed by lobby code.
type Store struct {
	mu      sync.Mutex
	lobbies map[string]*Lobby
}

// NewStore returns an in-memory registry of live lobbies.
func NewStore() *Store {
	return &Store{
		lobbies: make(map[string]*Lobby),
	}
}

// Create generates a collision-free 8-character uppercase alphanumeric code,
// inserts an empty lobby under it and returns the new lobby. The generation
// space is large enough that collisions are practically never seen, but a
// candidate code is never assumed unique without checking the registry.
func (s *Store) Create() *Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		code := randomCode()
		if _, taken := s.lobbies[code]; taken {
			continue
		}
		l := New(code)
		s.lobbies[code] = l
		return l
	}
}

// Get retrieves a live lobby if it exists.
func (s *Store) Get(code string) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[code]
	return l, ok
}

// Insert places a lobby into the registry under its own code, replacing any
// existing entry. Used when rehydrating an archived lobby.
func (s *Store) Insert(l *Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[l.Code] = l
}

// Remove deletes the lobby; no-op if the code is absent.
func (s *Store) Remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, code)
}

// Len returns the number of live lobbies.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}

func randomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
