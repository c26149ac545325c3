package handler

import (
	"net/http"

	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// ContentHandler serves the static board and card catalogue the engine was
// built from.
type ContentHandler struct {
	m     *campaign.Map
	cards *campaign.CardSet
}

// NewContentHandler creates a ContentHandler.
func NewContentHandler(m *campaign.Map, cards *campaign.CardSet) *ContentHandler {
	return &ContentHandler{m: m, cards: cards}
}

type mapResponse struct {
	Areas  []*campaign.Area    `json:"areas"`
	Routes []campaign.Route    `json:"routes"`
	Armies []campaign.ArmySpec `json:"armies"`
}

// GetMap handles GET /api/v1/content/map
func (h *ContentHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	resp := mapResponse{Routes: h.m.Routes, Armies: h.m.Armies}
	for _, id := range h.m.AreaIDs() {
		resp.Areas = append(resp.Areas, h.m.Area(id))
	}
	writeJSON(w, http.StatusOK, resp)
}

type deckSummary struct {
	Name campaign.DeckName `json:"name"`
	Size int               `json:"size"`
}

// GetCards handles GET /api/v1/content/cards
func (h *ContentHandler) GetCards(w http.ResponseWriter, r *http.Request) {
	var decks []deckSummary
	for _, d := range campaign.AllDecks() {
		decks = append(decks, deckSummary{Name: d, Size: h.cards.DeckSize(d)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": h.cards.All(), "decks": decks})
}

// GetCard handles GET /api/v1/content/cards/{id}
func (h *ContentHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	c := h.cards.Card(r.PathValue("id"))
	if c == nil {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
