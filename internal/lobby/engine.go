// internal/lobby/engine.go
package lobby

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tyatyapatya/GUH2025/internal/archive"
	"github.com/tyatyapatya/GUH2025/internal/geo"
)

// Broadcaster delivers lobby events to every socket subscribed to a lobby's
// room. Implemented by broadcast.Fanout.
type Broadcaster interface {
	Publish(code string, msg map[string]interface{})
	PublishEnrichment(code string, details map[string]interface{})
}

// Resolver is the external geodata boundary: it turns a geometric midpoint
// into a nearby named place, and a named place into richer point-of-interest
// data. Both calls are best effort; failures surface as errors here and are
// converted to "no enrichment" by the engine.
type Resolver interface {
	NearestTown(ctx context.Context, mid geo.Point) (*geo.NamedPoint, error)
	PlaceDetails(ctx context.Context, name string, mid geo.Point) (map[string]interface{}, error)
}

const (
	nearestTownTimeout = 3 * time.Second
	enrichmentTimeout  = 15 * time.Second
)

// memberRef locates a participant from their connection token.
type memberRef struct {
	code   string
	userID string
}

// Engine owns every lobby mutation. A single mutex serializes presence,
// point and chat updates so no two mutations of the same lobby ever
// interleave; the broadcast for a mutation is published before the lock is
// released to the next event. Background enrichment is the only concurrent
// path and re-checks lobby existence before delivering.
type Engine struct {
	mu sync.Mutex

	store     *Store
	fanout    Broadcaster
	resolver  Resolver
	archives  *archive.Store
	scheduler *archive.Scheduler

	// tokens is the reverse index from connection token to participant, so
	// a transport disconnect resolves in O(1) instead of scanning lobbies.
	tokens map[uuid.UUID]memberRef

	logger *logrus.Logger
}

// NewEngine wires the registry, fan-out, resolver and archive store into an
// engine and starts its archive scheduler. The resolver may be nil, in which
// case no reachable midpoint or enrichment is ever produced.
func NewEngine(store *Store, fanout Broadcaster, resolver Resolver, archives *archive.Store, archiveDelay time.Duration, logger *logrus.Logger) *Engine {
	e := &Engine{
		store:    store,
		fanout:   fanout,
		resolver: resolver,
		archives: archives,
		tokens:   make(map[uuid.UUID]memberRef),
		logger:   logger,
	}
	e.scheduler = archive.NewScheduler(archiveDelay, e.archiveExpired, logger)
	return e
}

// Create makes a new empty lobby and returns it.
func (e *Engine) Create() *Lobby {
	l := e.store.Create()
	e.logger.WithField("code", l.Code).Info("lobby created")
	return l
}

// Join adds userID to the lobby, or re-attaches them on reconnect. A rejoin
// overwrites the connection token and preserves the participant's point and
// display name. Joining a code that was archived rehydrates the latest
// record first. Returns false (silently, per the fail-soft contract) if the
// lobby does not exist anywhere.
func (e *Engine) Join(code, userID, displayName string, token uuid.UUID) bool {
	if code == "" || userID == "" {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.lobbyOrRehydrateLocked(code)
	if !ok {
		e.logger.WithField("code", code).Warn("join ignored, unknown lobby")
		return false
	}

	if p, exists := l.Participants[userID]; exists {
		if p.Token != uuid.Nil {
			delete(e.tokens, p.Token)
		}
		p.Token = token
	} else {
		if displayName == "" {
			displayName = userID
		}
		l.Participants[userID] = &Participant{
			ID:          userID,
			DisplayName: displayName,
			Token:       token,
		}
	}
	if token != uuid.Nil {
		e.tokens[token] = memberRef{code: code, userID: userID}
	}

	e.scheduler.Cancel(code)
	e.broadcastLocked(l)
	return true
}

// Leave removes the participant and their point entirely, regardless of
// disconnect state. Schedules an archive if the lobby goes inactive.
func (e *Engine) Leave(code, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.store.Get(code)
	if !ok {
		return
	}
	if p, exists := l.Participants[userID]; exists {
		if p.Token != uuid.Nil {
			delete(e.tokens, p.Token)
		}
		delete(l.Participants, userID)
	}
	delete(l.Points, userID)

	if l.Inactive() {
		e.scheduler.Schedule(code)
	}
	e.broadcastLocked(l)
}

// AddPoint sets or replaces the participant's point. Malformed coordinates
// and unknown lobbies or participants are rejected before mutation with no
// broadcast.
func (e *Engine) AddPoint(code, userID string, p geo.Point) {
	if !p.Valid() {
		e.logger.WithFields(logrus.Fields{
			"code": code,
			"user": userID,
		}).Warn("rejecting out-of-range coordinates")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.store.Get(code)
	if !ok {
		return
	}
	if _, exists := l.Participants[userID]; !exists {
		return
	}
	l.Points[userID] = p
	e.broadcastLocked(l)
}

// Chat appends a message if the text is non-empty after trimming.
func (e *Engine) Chat(code, senderName, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if senderName == "" {
		senderName = "Anonymous"
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.store.Get(code)
	if !ok {
		return
	}
	l.Messages = append(l.Messages, ChatMessage{SenderName: senderName, Text: text})
	e.broadcastLocked(l)
}

// Disconnect soft-disconnects the participant owning the transport token:
// the token is cleared but the participant and their point are retained for
// a possible rejoin. Unknown tokens are a no-op.
func (e *Engine) Disconnect(token uuid.UUID) {
	if token == uuid.Nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ref, ok := e.tokens[token]
	if !ok {
		return
	}
	delete(e.tokens, token)

	l, ok := e.store.Get(ref.code)
	if !ok {
		return
	}
	if p, exists := l.Participants[ref.userID]; exists && p.Token == token {
		p.Token = uuid.Nil
	}

	if l.Inactive() {
		e.scheduler.Schedule(ref.code)
	}
	e.broadcastLocked(l)
}

// Rehydrate loads the latest archive record for code back into the live
// registry. Returns the lobby already live under that code if one exists.
func (e *Engine) Rehydrate(code string) (*Lobby, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if l, ok := e.lobbyOrRehydrateLocked(code); ok {
		return l, nil
	}
	return nil, os.ErrNotExist
}

// StatePayload returns the lobby_update payload for the lobby, or false if
// the code is not live.
func (e *Engine) StatePayload(code string) (map[string]interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.store.Get(code)
	if !ok {
		return nil, false
	}
	payload, _ := e.statePayloadLocked(l)
	return payload, true
}

// ArchivePending reports whether an eviction timer is outstanding for code.
func (e *Engine) ArchivePending(code string) bool {
	return e.scheduler.Pending(code)
}

// lobbyOrRehydrateLocked fetches a live lobby, falling back to the latest
// archive record. A rehydrated lobby comes back with every participant
// soft-disconnected, so a fresh eviction timer is scheduled immediately;
// the join that prompted the rehydration cancels it.
func (e *Engine) lobbyOrRehydrateLocked(code string) (*Lobby, bool) {
	if l, ok := e.store.Get(code); ok {
		return l, true
	}
	var l Lobby
	if err := e.archives.LoadLatest(code, &l); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.logger.WithField("code", code).Warnf("rehydrate failed: %v", err)
		}
		return nil, false
	}
	if l.Participants == nil {
		l.Participants = make(map[string]*Participant)
	}
	if l.Points == nil {
		l.Points = make(map[string]geo.Point)
	}
	for _, p := range l.Participants {
		p.Token = uuid.Nil
	}
	l.Code = code
	e.store.Insert(&l)
	e.scheduler.Schedule(code)
	e.logger.WithField("code", code).Info("lobby rehydrated from archive")
	return &l, true
}

// archiveExpired runs when an eviction timer fires. It re-checks that the
// lobby still exists and is still fully inactive before writing the archive
// record and removing the lobby from the registry. A failed write leaves the
// lobby live so state is never dropped on an I/O error.
func (e *Engine) archiveExpired(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.store.Get(code)
	if !ok {
		return
	}
	if !l.Inactive() {
		e.logger.WithField("code", code).Info("archive timer fired but lobby is active again, skipping")
		return
	}
	path, err := e.archives.Write(code, l)
	if err != nil {
		e.logger.WithField("code", code).Errorf("archive write failed, keeping lobby live: %v", err)
		return
	}
	e.store.Remove(code)
	e.logger.WithFields(logrus.Fields{
		"code": code,
		"path": path,
	}).Info("lobby archived")
}

// broadcastLocked publishes the synchronous lobby_update for the current
// state and, if a reachable midpoint was found, dispatches the background
// enrichment task. Caller holds the engine lock.
func (e *Engine) broadcastLocked(l *Lobby) {
	payload, reachable := e.statePayloadLocked(l)
	e.fanout.Publish(l.Code, payload)
	if reachable != nil {
		mid := payload["geometricMidpoint"].(geo.Point)
		go e.enrich(l.Code, reachable.Name, mid)
	}
}

// statePayloadLocked assembles the lobby_update payload. Midpoints require
// at least two submitted points; the reachable midpoint is a best-effort
// external lookup that yields nil on any failure.
func (e *Engine) statePayloadLocked(l *Lobby) (map[string]interface{}, *geo.NamedPoint) {
	ids := make([]string, 0, len(l.Participants))
	for id := range l.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	points := make(map[string]geo.Point, len(l.Points))
	for id, p := range l.Points {
		points[id] = p
	}

	messages := make([]map[string]interface{}, 0, len(l.Messages))
	for _, m := range l.Messages {
		messages = append(messages, map[string]interface{}{
			"name": m.SenderName,
			"text": m.Text,
		})
	}

	var midpoint interface{}
	var reachableField interface{}
	var reachable *geo.NamedPoint
	if pts := l.PointList(); len(pts) >= 2 {
		if mid, ok := geo.Centroid(pts); ok {
			midpoint = mid
			reachable = e.nearestTown(mid)
			if reachable != nil {
				reachableField = *reachable
			}
		}
	}

	return map[string]interface{}{
		"type":              "lobby_update",
		"code":              l.Code,
		"participants":      ids,
		"points":            points,
		"geometricMidpoint": midpoint,
		"reachableMidpoint": reachableField,
		"midpointDetails":   map[string]interface{}{},
		"messages":          messages,
	}, reachable
}

func (e *Engine) nearestTown(mid geo.Point) *geo.NamedPoint {
	if e.resolver == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), nearestTownTimeout)
	defer cancel()
	place, err := e.resolver.NearestTown(ctx, mid)
	if err != nil {
		e.logger.Warnf("nearest town lookup failed: %v", err)
		return nil
	}
	return place
}

// enrich fetches point-of-interest data for the reachable midpoint and
// publishes it as a separate travel_info_update event. The result is
// silently dropped if the lobby no longer exists by completion time.
// Concurrent enrichment tasks for the same lobby are not serialized; the
// last delivered result wins client-side.
func (e *Engine) enrich(code, placeName string, mid geo.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichmentTimeout)
	defer cancel()

	details, err := e.resolver.PlaceDetails(ctx, placeName, mid)
	if err != nil {
		e.logger.WithField("code", code).Warnf("enrichment failed: %v", err)
		return
	}
	if len(details) == 0 {
		return
	}

	e.mu.Lock()
	_, live := e.store.Get(code)
	e.mu.Unlock()
	if !live {
		e.logger.WithField("code", code).Debug("dropping enrichment for archived lobby")
		return
	}
	e.fanout.PublishEnrichment(code, details)
}
