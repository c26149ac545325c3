package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/race-to-moscow/internal/auth"
	"github.com/freeeve/race-to-moscow/internal/service"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 8192
	sendBufSize = 256
	opTimeout   = 10 * time.Second
)

// Client actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionCommand     = "command"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware
	},
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action    string            `json:"action"`
	SessionID string            `json:"session_id"`
	Command   *campaign.Command `json:"command,omitempty"`
}

type commandResult struct {
	Op      string `json:"op"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Version int    `json:"version,omitempty"`
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub      *Hub
	sessions *service.SessionService
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *Hub, sessions *service.SessionService) *WSHandler {
	return &WSHandler{hub: hub, sessions: sessions}
}

// ServeWS handles GET /api/v1/ws. The auth middleware has already resolved
// the user from the header or the access_token query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)
	h.hub.sendTo(client, WSEvent{Type: "connected", Data: map[string]any{}})

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("userId", userID).Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("userId", c.userID).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("userId", c.userID).Msg("WebSocket unexpected close")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.hub.sendTo(c, WSEvent{Type: EventError, Data: map[string]string{"error": "malformed message"}})
			continue
		}
		h.handleMessage(c, msg)
	}
}

func (h *WSHandler) handleMessage(c *WSConn, msg ClientMessage) {
	if msg.SessionID == "" {
		h.hub.sendTo(c, WSEvent{Type: EventError, Data: map[string]string{"error": "session_id is required"}})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch msg.Action {
	case ActionSubscribe:
		sess, gs, err := h.sessions.GetSession(ctx, msg.SessionID, c.userID)
		if err != nil {
			h.hub.sendTo(c, WSEvent{Type: EventError, SessionID: msg.SessionID, Data: map[string]string{"error": err.Error()}})
			return
		}
		h.hub.Subscribe(c, msg.SessionID)
		h.hub.sendTo(c, WSEvent{Type: EventSubscribed, SessionID: msg.SessionID, Data: sessionView{
			Session: sess, State: gs, Decisions: h.sessions.Decisions(gs),
		}})
	case ActionUnsubscribe:
		h.hub.Unsubscribe(c, msg.SessionID)
	case ActionCommand:
		if msg.Command == nil {
			h.hub.sendTo(c, WSEvent{Type: EventError, SessionID: msg.SessionID, Data: map[string]string{"error": "command is required"}})
			return
		}
		res := commandResult{Op: msg.Command.Op, OK: true}
		gs, err := h.sessions.Apply(ctx, msg.SessionID, c.userID, *msg.Command)
		if err != nil {
			res.OK, res.Error = false, err.Error()
		}
		if gs != nil {
			res.Version = gs.Version
		}
		h.hub.sendTo(c, WSEvent{Type: EventCommandDone, SessionID: msg.SessionID, Data: res})
	default:
		h.hub.sendTo(c, WSEvent{Type: EventError, SessionID: msg.SessionID, Data: map[string]string{"error": "unknown action"}})
	}
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same frame, one per line.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
