// internal/broadcast/fanout.go
package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Conn is a single subscriber's presence in a lobby room. Messages queued on
// OutChan are drained by the connection's write pump.
type Conn struct {
	Token   uuid.UUID
	Cancel  context.CancelFunc
	OutChan chan map[string]interface{}
}

// Write pushes a message onto the subscriber's OutChan without blocking.
// If the channel is full or closed the message is dropped and logged;
// delivery is at most once.
func (c *Conn) Write(logger *logrus.Logger, msg map[string]interface{}) {
	select {
	case c.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		logger.WithFields(logrus.Fields{
			"token": c.Token,
			"event": msgType,
		}).Warn("subscriber channel full or closed, dropping event")
	}
}

// Fanout routes events to all sockets subscribed to a lobby's room. Rooms
// are independent of the lobby registry: a room exists while it has
// subscribers, whether or not the lobby is still live.
type Fanout struct {
	mu     sync.Mutex
	rooms  map[string]map[uuid.UUID]*Conn
	logger *logrus.Logger
}

// NewFanout returns an empty room registry.
func NewFanout(logger *logrus.Logger) *Fanout {
	return &Fanout{
		rooms:  make(map[string]map[uuid.UUID]*Conn),
		logger: logger,
	}
}

// Subscribe adds the connection to the room for code, creating the room if
// needed. A second subscribe with the same token replaces the first.
func (f *Fanout) Subscribe(code string, c *Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[code]
	if !ok {
		room = make(map[uuid.UUID]*Conn)
		f.rooms[code] = room
	}
	room[c.Token] = c
}

// Unsubscribe removes the token's connection from the room, deleting the
// room when it empties. No-op if the token was never subscribed.
func (f *Fanout) Unsubscribe(code string, token uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[code]
	if !ok {
		return
	}
	delete(room, token)
	if len(room) == 0 {
		delete(f.rooms, code)
	}
}

// Publish delivers one event to every current subscriber of the room, in
// publish order within the room. Events for distinct rooms are unordered
// relative to each other.
func (f *Fanout) Publish(code string, msg map[string]interface{}) {
	f.mu.Lock()
	conns := make([]*Conn, 0, len(f.rooms[code]))
	for _, c := range f.rooms[code] {
		conns = append(conns, c)
	}
	f.mu.Unlock()

	for _, c := range conns {
		c.Write(f.logger, msg)
	}
}

// PublishEnrichment delivers the second, enrichment-only event type to the
// room.
func (f *Fanout) PublishEnrichment(code string, details map[string]interface{}) {
	f.Publish(code, map[string]interface{}{
		"type":            "travel_info_update",
		"midpointDetails": details,
	})
}

// RoomSize returns the number of subscribers in the room for code.
func (f *Fanout) RoomSize(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms[code])
}
