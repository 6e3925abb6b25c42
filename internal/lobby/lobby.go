// internal/lobby/lobby.go
package lobby

import (
	"time"

	"github.com/google/uuid"

	"github.com/tyatyapatya/GUH2025/internal/geo"
)

// Participant is one member of a lobby. Token identifies the live transport
// connection; uuid.Nil means the participant is soft-disconnected but
// retained, along with their point, pending a possible rejoin.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Token       uuid.UUID `json:"connectionToken"`
}

// Connected reports whether the participant has a live connection.
func (p *Participant) Connected() bool {
	return p.Token != uuid.Nil
}

// ChatMessage is an append-only chat entry; ordering is arrival order.
type ChatMessage struct {
	SenderName string `json:"name"`
	Text       string `json:"text"`
}

// Lobby is the in-memory state of one meeting room. It is owned by the
// Engine; all mutation happens under the Engine's lock. The JSON tags define
// the archive snapshot format.
type Lobby struct {
	Code         string                  `json:"code"`
	Participants map[string]*Participant `json:"participants"`
	Points       map[string]geo.Point    `json:"points"`
	Messages     []ChatMessage           `json:"messages"`
	CreatedAt    time.Time               `json:"createdAt"`
}

// New returns an empty lobby for the given code.
func New(code string) *Lobby {
	return &Lobby{
		Code:         code,
		Participants: make(map[string]*Participant),
		Points:       make(map[string]geo.Point),
		CreatedAt:    time.Now(),
	}
}

// Inactive reports whether the lobby is archive-eligible: no participants at
// all, or every participant soft-disconnected.
func (l *Lobby) Inactive() bool {
	for _, p := range l.Participants {
		if p.Connected() {
			return false
		}
	}
	return true
}

// PointList returns the current points in no particular order.
func (l *Lobby) PointList() []geo.Point {
	points := make([]geo.Point, 0, len(l.Points))
	for _, p := range l.Points {
		points = append(points, p)
	}
	return points
}
