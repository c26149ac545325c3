package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/race-to-moscow/internal/auth"
	"github.com/freeeve/race-to-moscow/internal/model"
	"github.com/freeeve/race-to-moscow/internal/repository/local"
	"github.com/freeeve/race-to-moscow/internal/service"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// --- Fixtures ---

type fixture struct {
	store    *local.Store
	svc      *service.SessionService
	sessions *SessionHandler
	users    *UserHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := local.Open("", zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := service.NewSessionService(campaign.NewStandardEngine(nil),
		store.Sessions(), store.Snapshots(), nil, nil, time.Hour)
	return &fixture{
		store:    store,
		svc:      svc,
		sessions: NewSessionHandler(svc),
		users:    NewUserHandler(store.Users(), svc),
	}
}

func (f *fixture) createSession(t *testing.T, userID string) string {
	t.Helper()
	sess, _, err := f.svc.CreateSession(context.Background(), userID, "", "gray", "standard", 7)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess.ID
}

// --- Helpers ---

func reqWithUserID(method, path string, body string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func withPath(req *http.Request, kv ...string) *http.Request {
	for i := 0; i+1 < len(kv); i += 2 {
		req.SetPathValue(kv[i], kv[i+1])
	}
	return req
}

type viewBody struct {
	Session   model.Session       `json:"session"`
	State     campaign.GameState  `json:"state"`
	Decisions []campaign.Decision `json:"decisions"`
}

// --- User Handler Tests ---

func TestGetMe(t *testing.T) {
	f := newFixture(t)
	user, err := f.store.Upsert(context.Background(), "google", "sub-1", "Alice", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	f.createSession(t, user.ID)

	req := reqWithUserID(http.MethodGet, "/users/me", "", user.ID)
	rec := httptest.NewRecorder()
	f.users.GetMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		DisplayName string         `json:"display_name"`
		Record      CampaignRecord `json:"record"`
	}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.DisplayName != "Alice" {
		t.Errorf("expected Alice, got %s", got.DisplayName)
	}
	if got.Record.Active != 1 {
		t.Errorf("expected 1 active campaign, got %+v", got.Record)
	}
}

func TestGetMeNotFound(t *testing.T) {
	f := newFixture(t)

	req := reqWithUserID(http.MethodGet, "/users/me", "", "nonexistent")
	rec := httptest.NewRecorder()
	f.users.GetMe(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateMe(t *testing.T) {
	f := newFixture(t)
	user, _ := f.store.Upsert(context.Background(), "google", "sub-1", "Alice", "")

	req := reqWithUserID(http.MethodPatch, "/users/me", `{"display_name":"  Bob  "}`, user.ID)
	rec := httptest.NewRecorder()
	f.users.UpdateMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got model.User
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.DisplayName != "Bob" {
		t.Errorf("expected Bob, got %q", got.DisplayName)
	}
}

func TestUpdateMeValidation(t *testing.T) {
	f := newFixture(t)
	user, _ := f.store.Upsert(context.Background(), "google", "sub-1", "Alice", "")

	for _, body := range []string{
		`{"display_name":""}`,
		`{"display_name":"   "}`,
		fmt.Sprintf(`{"display_name":%q}`, strings.Repeat("x", maxDisplayName+1)),
		"not json",
	} {
		req := reqWithUserID(http.MethodPatch, "/users/me", body, user.ID)
		rec := httptest.NewRecorder()
		f.users.UpdateMe(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestTally(t *testing.T) {
	rec := tally([]model.Session{
		{Status: model.StatusActive, Medals: 1},
		{Status: model.StatusWon, Medals: 3},
		{Status: model.StatusLost},
		{Status: model.StatusWon, Medals: 2},
	})
	want := CampaignRecord{Active: 1, Won: 2, Lost: 1, Medals: 6}
	if rec != want {
		t.Errorf("tally = %+v, want %+v", rec, want)
	}
}

// --- Session Handler Tests ---

func TestCreateSession(t *testing.T) {
	f := newFixture(t)

	req := reqWithUserID(http.MethodPost, "/sessions", `{"name":"North","mode":"hard","seed":42}`, "user-1")
	rec := httptest.NewRecorder()
	f.sessions.CreateSession(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got viewBody
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Session.Name != "North" || got.Session.Faction != "gray" || got.Session.Mode != "hard" {
		t.Errorf("session = %+v", got.Session)
	}
	if got.Session.Seed != 42 {
		t.Errorf("expected seed 42, got %d", got.Session.Seed)
	}
	if got.State.Version != 0 || got.State.Turn != 1 {
		t.Errorf("state version %d turn %d", got.State.Version, got.State.Turn)
	}
}

func TestCreateSessionBadFaction(t *testing.T) {
	f := newFixture(t)

	req := reqWithUserID(http.MethodPost, "/sessions", `{"faction":"red"}`, "user-1")
	rec := httptest.NewRecorder()
	f.sessions.CreateSession(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestListSessionsEmpty(t *testing.T) {
	f := newFixture(t)

	req := reqWithUserID(http.MethodGet, "/sessions", "", "user-1")
	rec := httptest.NewRecorder()
	f.sessions.ListSessions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected [], got %s", rec.Body.String())
	}
}

func TestRecentSessions(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.createSession(t, "user-1")
	}

	req := reqWithUserID(http.MethodGet, "/sessions/recent?n=2", "", "user-1")
	rec := httptest.NewRecorder()
	f.sessions.RecentSessions(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var list []model.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(list))
	}

	for _, bad := range []string{"0", "51", "many"} {
		req := reqWithUserID(http.MethodGet, "/sessions/recent?n="+bad, "", "user-1")
		rec := httptest.NewRecorder()
		f.sessions.RecentSessions(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("n=%s: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestGetSession(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "user-1")

	req := withPath(reqWithUserID(http.MethodGet, "/sessions/"+id, "", "user-1"), "id", id)
	rec := httptest.NewRecorder()
	f.sessions.GetSession(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got viewBody
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Session.ID != id {
		t.Errorf("expected session %s, got %s", id, got.Session.ID)
	}
	if got.State.Solitaire.ActionsLeft != 2 {
		t.Errorf("expected 2 actions, got %d", got.State.Solitaire.ActionsLeft)
	}
}

func TestGetSessionErrors(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "user-1")

	tests := []struct {
		name   string
		id     string
		user   string
		status int
	}{
		{"missing", "00000000-0000-0000-0000-000000000000", "user-1", http.StatusNotFound},
		{"not owner", id, "user-2", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withPath(reqWithUserID(http.MethodGet, "/sessions/"+tt.id, "", tt.user), "id", tt.id)
			rec := httptest.NewRecorder()
			f.sessions.GetSession(rec, req)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestApplyOperation(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "user-1")

	req := withPath(reqWithUserID(http.MethodPost, "/sessions/"+id+"/ops/take_supplies", "", "user-1"),
		"id", id, "op", campaign.OpTakeSupplies)
	rec := httptest.NewRecorder()
	f.sessions.Apply(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		State   campaign.GameState `json:"state"`
		LogLine string             `json:"log_line"`
	}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.State.Version != 1 {
		t.Errorf("expected version 1, got %d", got.State.Version)
	}
	if got.LogLine == "" {
		t.Error("expected a log line")
	}
}

func TestApplyOperationRejected(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "user-1")

	body := `{"army":"pzgr4","area":"moscow"}`
	req := withPath(reqWithUserID(http.MethodPost, "/sessions/"+id+"/ops/move", body, "user-1"),
		"id", id, "op", campaign.OpMove)
	rec := httptest.NewRecorder()
	f.sessions.Apply(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Error string             `json:"error"`
		Op    string             `json:"op"`
		State campaign.GameState `json:"state"`
	}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Error == "" || got.Op != campaign.OpMove {
		t.Errorf("rejection body = %s", rec.Body.String())
	}
	if got.State.Version != 0 {
		t.Errorf("expected unchanged state, got version %d", got.State.Version)
	}
}

func TestApplyOperationBadBody(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "user-1")

	req := withPath(reqWithUserID(http.MethodPost, "/sessions/"+id+"/ops/move", "{", "user-1"),
		"id", id, "op", campaign.OpMove)
	rec := httptest.NewRecorder()
	f.sessions.Apply(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHistoryAndStateAt(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "user-1")
	if _, err := f.svc.Apply(context.Background(), id, "user-1", campaign.Command{Op: campaign.OpTakeSupplies}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	req := withPath(reqWithUserID(http.MethodGet, "/sessions/"+id+"/history", "", "user-1"), "id", id)
	rec := httptest.NewRecorder()
	f.sessions.History(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snaps []model.Snapshot
	json.Unmarshal(rec.Body.Bytes(), &snaps)
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}

	req = withPath(reqWithUserID(http.MethodGet, "/sessions/"+id+"/history/0", "", "user-1"), "id", id, "version", "0")
	rec = httptest.NewRecorder()
	f.sessions.StateAt(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var gs campaign.GameState
	json.Unmarshal(rec.Body.Bytes(), &gs)
	if gs.Version != 0 {
		t.Errorf("expected version 0, got %d", gs.Version)
	}

	for version, status := range map[string]int{"x": http.StatusBadRequest, "-1": http.StatusBadRequest, "99": http.StatusNotFound} {
		req = withPath(reqWithUserID(http.MethodGet, "/", "", "user-1"), "id", id, "version", version)
		rec = httptest.NewRecorder()
		f.sessions.StateAt(rec, req)
		if rec.Code != status {
			t.Errorf("version %s: expected %d, got %d", version, status, rec.Code)
		}
	}
}

func TestPeekDeck(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "user-1")

	req := withPath(reqWithUserID(http.MethodGet, "/", "", "user-1"), "id", id, "deck", "encounter")
	rec := httptest.NewRecorder()
	f.sessions.PeekDeck(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = withPath(reqWithUserID(http.MethodGet, "/", "", "user-1"), "id", id, "deck", "bogus")
	rec = httptest.NewRecorder()
	f.sessions.PeekDeck(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unknown deck, got %d", rec.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t, "user-1")

	req := withPath(reqWithUserID(http.MethodDelete, "/sessions/"+id, "", "user-2"), "id", id)
	rec := httptest.NewRecorder()
	f.sessions.DeleteSession(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	req = withPath(reqWithUserID(http.MethodDelete, "/sessions/"+id, "", "user-1"), "id", id)
	rec = httptest.NewRecorder()
	f.sessions.DeleteSession(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = withPath(reqWithUserID(http.MethodGet, "/sessions/"+id, "", "user-1"), "id", id)
	rec = httptest.NewRecorder()
	f.sessions.GetSession(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

// --- Content Handler Tests ---

func TestContentEndpoints(t *testing.T) {
	e := campaign.NewStandardEngine(nil)
	h := NewContentHandler(e.Map(), e.Cards())

	rec := httptest.NewRecorder()
	h.GetMap(rec, httptest.NewRequest(http.MethodGet, "/content/map", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("map: expected 200, got %d", rec.Code)
	}
	var m mapResponse
	json.Unmarshal(rec.Body.Bytes(), &m)
	if len(m.Areas) != len(e.Map().AreaIDs()) || len(m.Routes) == 0 {
		t.Errorf("map has %d areas %d routes", len(m.Areas), len(m.Routes))
	}

	rec = httptest.NewRecorder()
	h.GetCards(rec, httptest.NewRequest(http.MethodGet, "/content/cards", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cards: expected 200, got %d", rec.Code)
	}

	first := e.Cards().All()[0]
	req := withPath(httptest.NewRequest(http.MethodGet, "/", nil), "id", first.ID)
	rec = httptest.NewRecorder()
	h.GetCard(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("card: expected 200, got %d", rec.Code)
	}

	req = withPath(httptest.NewRequest(http.MethodGet, "/", nil), "id", "nope")
	rec = httptest.NewRecorder()
	h.GetCard(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing card: expected 404, got %d", rec.Code)
	}
}

// --- Auth Handler Tests ---

func TestRefreshTokenValid(t *testing.T) {
	f := newFixture(t)
	jwtMgr := auth.NewJWTManager("test-secret")
	h := NewAuthHandler(nil, jwtMgr, f.store.Users(), false)

	refresh, _ := jwtMgr.GenerateRefreshToken("user-1")
	body := fmt.Sprintf(`{"refresh_token":"%s"}`, refresh)
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tokens auth.TokenPair
	json.Unmarshal(rec.Body.Bytes(), &tokens)
	if tokens.AccessToken == "" {
		t.Error("expected non-empty access token")
	}
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	jwtMgr := auth.NewJWTManager("test-secret")
	h := NewAuthHandler(nil, jwtMgr, f.store.Users(), false)

	access, _ := jwtMgr.GenerateAccessToken("user-1")
	body := fmt.Sprintf(`{"refresh_token":"%s"}`, access)
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshTokenInvalid(t *testing.T) {
	f := newFixture(t)
	h := NewAuthHandler(nil, auth.NewJWTManager("test-secret"), f.store.Users(), false)

	for body, status := range map[string]int{
		`{"refresh_token":"invalid"}`: http.StatusUnauthorized,
		"not json":                    http.StatusBadRequest,
	} {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.RefreshToken(rec, req)
		if rec.Code != status {
			t.Errorf("body %q: expected %d, got %d", body, status, rec.Code)
		}
	}
}

func TestDevLogin(t *testing.T) {
	f := newFixture(t)
	jwtMgr := auth.NewJWTManager("test-secret")

	off := NewAuthHandler(nil, jwtMgr, f.store.Users(), false)
	rec := httptest.NewRecorder()
	off.DevLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/dev?name=alice", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside dev mode, got %d", rec.Code)
	}

	on := NewAuthHandler(nil, jwtMgr, f.store.Users(), true)
	rec = httptest.NewRecorder()
	on.DevLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/dev?name=alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tokens auth.TokenPair
	json.Unmarshal(rec.Body.Bytes(), &tokens)
	claims, err := jwtMgr.ValidateKind(tokens.AccessToken, auth.KindAccess)
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	user, _ := f.store.Users().FindByID(context.Background(), claims.UserID)
	if user == nil || user.DisplayName != "alice" {
		t.Errorf("dev user = %+v", user)
	}

	rec = httptest.NewRecorder()
	on.DevLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/dev", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without name, got %d", rec.Code)
	}
}

func TestGoogleCallbackChecksState(t *testing.T) {
	f := newFixture(t)
	h := NewAuthHandler(nil, auth.NewJWTManager("test-secret"), f.store.Users(), false)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=forged", nil)
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing state cookie, got %d", rec.Code)
	}
}
