package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/race-to-moscow/internal/model"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// WSEvent mirrors handler.WSEvent for client-side deserialization.
type WSEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

// Rejection is a rule rejection returned by the server. State is the
// unchanged campaign.
type Rejection struct {
	Op      string              `json:"op"`
	Message string              `json:"error"`
	State   *campaign.GameState `json:"state"`
}

func (r *Rejection) Error() string { return r.Message }

// SessionView is the server's answer for a session.
type SessionView struct {
	Session   *model.Session      `json:"session"`
	State     *campaign.GameState `json:"state"`
	Decisions []campaign.Decision `json:"decisions"`
}

// Client is an HTTP+WebSocket client for one bot user.
type Client struct {
	name     string
	baseURL  string
	token    string
	userID   string
	wsConn   *websocket.Conn
	events   chan WSEvent
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool
}

// NewClient creates a new bot client targeting the given server URL.
func NewClient(name, baseURL string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan WSEvent, 64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the bot name.
func (c *Client) Name() string { return c.name }

// UserID returns the bot's user ID after login.
func (c *Client) UserID() string { return c.userID }

// Login authenticates via the dev login endpoint.
func (c *Client) Login(ctx context.Context) error {
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/dev?name="+url.QueryEscape(c.name), nil, &tokens); err != nil {
		return fmt.Errorf("dev login: %w", err)
	}
	c.token = tokens.AccessToken

	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, &user); err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	c.userID = user.ID
	log.Debug().Str("bot", c.name).Str("userId", c.userID).Msg("Bot logged in")
	return nil
}

// CreateSession opens a new campaign on the server.
func (c *Client) CreateSession(ctx context.Context, name, faction, mode string, seed int64) (*SessionView, error) {
	body := map[string]any{"name": name, "faction": faction, "mode": mode, "seed": seed}
	var view SessionView
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetSession fetches a session and its live state.
func (c *Client) GetSession(ctx context.Context, id string) (*SessionView, error) {
	var view SessionView
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Apply submits one operation. A rule rejection comes back as *Rejection.
func (c *Client) Apply(ctx context.Context, id string, cmd campaign.Command) (*campaign.GameState, error) {
	var resp struct {
		State *campaign.GameState `json:"state"`
	}
	path := "/api/v1/sessions/" + url.PathEscape(id) + "/ops/" + url.PathEscape(cmd.Op)
	if err := c.do(ctx, http.MethodPost, path, cmd, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

// ConnectWS opens a WebSocket connection and starts listening for events.
func (c *Client) ConnectWS(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws"
	header := http.Header{"Authorization": []string{"Bearer " + c.token}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// Subscribe asks the server for a session's events.
func (c *Client) Subscribe(sessionID string) error {
	msg := map[string]string{"action": "subscribe", "session_id": sessionID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Str("bot", c.name).Msg("WS read error")
			}
			return
		}
		// The server may batch several events into one frame, one per line.
		for _, line := range bytes.Split(msg, []byte("\n")) {
			var event WSEvent
			if err := json.Unmarshal(line, &event); err != nil {
				continue
			}
			select {
			case c.events <- event:
			default:
				log.Debug().Str("bot", c.name).Str("type", event.Type).Msg("Bot event buffer full")
			}
		}
	}
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnprocessableEntity {
		var rej Rejection
		if err := json.Unmarshal(body, &rej); err != nil {
			return fmt.Errorf("%s %s: decode rejection: %w", method, path, err)
		}
		return &rej
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsRejection reports whether err is a rule rejection from the server.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}
