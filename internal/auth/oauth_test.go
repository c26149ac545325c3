package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// fakeProvider serves a token endpoint and a userinfo endpoint.
func fakeProvider(t *testing.T, profile Profile) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *OAuthProvider {
	return NewOAuthProvider("fake", &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}, srv.URL+"/userinfo")
}

func TestExchangeReturnsProfile(t *testing.T) {
	srv := fakeProvider(t, Profile{ID: "sub-1", Name: "Erich", Picture: "https://pic"})
	p := testProvider(srv)

	info, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if info.ID != "sub-1" || info.Name != "Erich" {
		t.Errorf("profile = %+v", info)
	}

	if _, err := p.Exchange(context.Background(), "bad-code"); err == nil {
		t.Error("expected error for rejected code")
	}
}

func TestExchangeRejectsEmptySubject(t *testing.T) {
	srv := fakeProvider(t, Profile{Name: "nobody"})
	if _, err := testProvider(srv).Exchange(context.Background(), "good-code"); err == nil {
		t.Error("expected error for profile without id")
	}
}

func TestBeginAndCheckState(t *testing.T) {
	srv := fakeProvider(t, Profile{ID: "x"})
	p := testProvider(srv)

	rec := httptest.NewRecorder()
	loginURL, err := p.Begin(rec)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	u, _ := url.Parse(loginURL)
	state := u.Query().Get("state")
	if state == "" || !strings.HasPrefix(loginURL, srv.URL+"/auth") {
		t.Fatalf("login url = %s", loginURL)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != state || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/callback?state="+state, nil)
	req.AddCookie(cookies[0])
	if !CheckState(req) {
		t.Error("matching state rejected")
	}

	req = httptest.NewRequest(http.MethodGet, "/callback?state=forged", nil)
	req.AddCookie(cookies[0])
	if CheckState(req) {
		t.Error("forged state accepted")
	}

	if CheckState(httptest.NewRequest(http.MethodGet, "/callback?state="+state, nil)) {
		t.Error("state without cookie accepted")
	}
}
