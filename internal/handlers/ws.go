// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tyatyapatya/GUH2025/internal/broadcast"
	"github.com/tyatyapatya/GUH2025/internal/geo"
)

// wsMessage is the inbound wire envelope. Every client event carries its
// lobby code; unused fields are zero.
type wsMessage struct {
	Type   string     `json:"type"`
	Code   string     `json:"code"`
	UserID string     `json:"userId"`
	Name   string     `json:"name"`
	Text   string     `json:"text"`
	Point  *geo.Point `json:"point"`
}

// WSHandler upgrades the connection and runs the read/write pumps. Each
// socket gets a fresh connection token; when the transport drops, the token
// identifies which participant to soft-disconnect.
func WSHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"halfway"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "halfway" {
			c.Close(BadSubprotocolError, "client must speak the halfway subprotocol")
			return
		}

		token := uuid.New()
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &broadcast.Conn{
			Token:   token,
			Cancel:  cancel,
			OutChan: make(chan map[string]interface{}, 16),
		}

		s.Logger.WithFields(logrus.Fields{
			"token":  token,
			"remote": r.RemoteAddr,
		}).Info("websocket connected")

		go writePump(ctx, c, conn, s.Logger)

		subscribed := make(map[string]struct{})
		readPump(ctx, c, s, conn, subscribed)

		// Transport gone: soft-disconnect the owning participant and drop
		// every room subscription. The point is preserved for a rejoin.
		s.Engine.Disconnect(token)
		for code := range subscribed {
			s.Fanout.Unsubscribe(code, token)
		}
		s.Logger.WithField("token", token).Info("websocket disconnected")
	}
}

// readPump decodes inbound events and applies them through the engine.
// Blocks until the connection closes or errors.
func readPump(ctx context.Context, c *websocket.Conn, s *Server, conn *broadcast.Conn, subscribed map[string]struct{}) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return
			}
			if !strings.Contains(err.Error(), "context canceled") {
				s.Logger.Warnf("read error for %v: %v", conn.Token, err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Logger.Warnf("invalid json from %v: %v", conn.Token, err)
			continue
		}
		handleMessage(s, conn, subscribed, msg)
	}
}

// handleMessage dispatches one client event. Mutations on stale or unknown
// lobbies are silent no-ops; there is no error channel on the realtime path.
func handleMessage(s *Server, conn *broadcast.Conn, subscribed map[string]struct{}, msg wsMessage) {
	switch msg.Type {
	case "join_lobby":
		if msg.Code == "" || msg.UserID == "" {
			return
		}
		// Subscribe first so the joiner receives the lobby_update their own
		// join triggers.
		s.Fanout.Subscribe(msg.Code, conn)
		if s.Engine.Join(msg.Code, msg.UserID, msg.Name, conn.Token) {
			subscribed[msg.Code] = struct{}{}
		} else {
			s.Fanout.Unsubscribe(msg.Code, conn.Token)
		}
	case "leave_lobby":
		s.Fanout.Unsubscribe(msg.Code, conn.Token)
		delete(subscribed, msg.Code)
		s.Engine.Leave(msg.Code, msg.UserID)
	case "add_point":
		if msg.Point == nil {
			return
		}
		s.Engine.AddPoint(msg.Code, msg.UserID, *msg.Point)
	case "chat_message":
		s.Engine.Chat(msg.Code, msg.Name, msg.Text)
	default:
		s.Logger.WithField("token", conn.Token).Warnf("unknown event type %q", msg.Type)
	}
}

// writePump drains the connection's out-channel onto the socket and keeps
// the transport alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *broadcast.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing msg for %v: %v", conn.Token, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket for %v: %v", conn.Token, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for %v, assuming disconnect: %v", conn.Token, err)
				return
			}
		}
	}
}
