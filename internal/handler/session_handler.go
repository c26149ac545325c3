package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/freeeve/race-to-moscow/internal/auth"
	"github.com/freeeve/race-to-moscow/internal/model"
	"github.com/freeeve/race-to-moscow/internal/service"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// SessionHandler serves campaign sessions and their operations.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// sessionView is what clients get for a session: its record, the live
// state and the answers a pending encounter accepts.
type sessionView struct {
	Session   *model.Session      `json:"session"`
	State     *campaign.GameState `json:"state"`
	Decisions []campaign.Decision `json:"decisions"`
}

type createSessionRequest struct {
	Name    string `json:"name"`
	Faction string `json:"faction"`
	Mode    string `json:"mode"`
	Seed    int64  `json:"seed"`
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Faction == "" {
		req.Faction = string(campaign.Gray)
	}
	if req.Mode == "" {
		req.Mode = string(campaign.ModeStandard)
	}

	sess, gs, err := h.sessions.CreateSession(r.Context(), userID, req.Name, req.Faction, req.Mode, req.Seed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView{Session: sess, State: gs, Decisions: h.sessions.Decisions(gs)})
}

// ListSessions handles GET /api/v1/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	list, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []model.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

const (
	defaultRecent = 5
	maxRecent     = 50
)

// RecentSessions handles GET /api/v1/sessions/recent?n=5
func (h *SessionHandler) RecentSessions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	n := defaultRecent
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxRecent {
			writeError(w, http.StatusBadRequest, "n must be between 1 and 50")
			return
		}
		n = v
	}
	list, err := h.sessions.RecentSessions(r.Context(), userID, n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []model.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sess, gs, err := h.sessions.GetSession(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView{Session: sess, State: gs, Decisions: h.sessions.Decisions(gs)})
}

// DeleteSession handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.sessions.DeleteSession(r.Context(), r.PathValue("id"), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/v1/sessions/{id}/history
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	list, err := h.sessions.History(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, list)
}

// StateAt handles GET /api/v1/sessions/{id}/history/{version}
func (h *SessionHandler) StateAt(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 0 {
		writeError(w, http.StatusBadRequest, "version must be a non-negative integer")
		return
	}
	gs, err := h.sessions.StateAt(r.Context(), r.PathValue("id"), userID, version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// PeekDeck handles GET /api/v1/sessions/{id}/decks/{deck}
func (h *SessionHandler) PeekDeck(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	view, err := h.sessions.PeekDeck(r.Context(), r.PathValue("id"), userID, r.PathValue("deck"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Apply handles POST /api/v1/sessions/{id}/ops/{op}. The body carries the
// operation's arguments and may be empty for operations that take none.
func (h *SessionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var cmd campaign.Command
	if err := decodeJSON(r, &cmd); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.Op = r.PathValue("op")

	gs, err := h.sessions.Apply(r.Context(), r.PathValue("id"), userID, cmd)
	if err != nil {
		var rule *campaign.RuleError
		if errors.As(err, &rule) && gs != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": rule.Message, "op": rule.Op, "state": gs,
			})
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":     gs,
		"log_line":  gs.LastLog(),
		"decisions": h.sessions.Decisions(gs),
	})
}
