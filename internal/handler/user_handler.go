package handler

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/freeeve/race-to-moscow/internal/auth"
	"github.com/freeeve/race-to-moscow/internal/model"
	"github.com/freeeve/race-to-moscow/internal/repository"
	"github.com/freeeve/race-to-moscow/internal/service"
)

const maxDisplayName = 40

// UserHandler handles user profile endpoints.
type UserHandler struct {
	userRepo repository.UserRepository
	sessions *service.SessionService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userRepo repository.UserRepository, sessions *service.SessionService) *UserHandler {
	return &UserHandler{userRepo: userRepo, sessions: sessions}
}

// CampaignRecord tallies a user's campaigns by status.
type CampaignRecord struct {
	Active int `json:"active"`
	Won    int `json:"won"`
	Lost   int `json:"lost"`
	Medals int `json:"medals"`
}

type meResponse struct {
	*model.User
	Record CampaignRecord `json:"record"`
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	list, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Record: tally(list)})
}

func tally(list []model.Session) CampaignRecord {
	var rec CampaignRecord
	for _, s := range list {
		switch s.Status {
		case model.StatusActive:
			rec.Active++
		case model.StatusWon:
			rec.Won++
		case model.StatusLost:
			rec.Lost++
		}
		rec.Medals += s.Medals
	}
	return rec
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}
	if utf8.RuneCountInString(name) > maxDisplayName {
		writeError(w, http.StatusBadRequest, "display_name is too long")
		return
	}

	if err := h.userRepo.UpdateDisplayName(r.Context(), userID, name); err != nil {
		writeServiceError(w, err)
		return
	}

	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
