package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenew_SwapsTokenPair(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotForm = map[string]string{
			"grant_type":    r.PostForm.Get("grant_type"),
			"refresh_token": r.PostForm.Get("refresh_token"),
			"client_id":     r.PostForm.Get("client_id"),
			"client_secret": r.PostForm.Get("client_secret"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"bearer","expires_in":1209599}`))
	}))
	defer srv.Close()

	m := New("old-access", "old-refresh", "cid", "secret", srv.URL, "hhbot/1.0", srv.Client(), discardLogger())

	if err := m.Renew(context.Background()); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if m.Token() != "new-access" {
		t.Errorf("Token() = %q, want new-access", m.Token())
	}
	if m.refreshToken != "new-refresh" {
		t.Errorf("refresh token not rotated, got %q", m.refreshToken)
	}
	if gotForm["grant_type"] != "refresh_token" || gotForm["refresh_token"] != "old-refresh" ||
		gotForm["client_id"] != "cid" || gotForm["client_secret"] != "secret" {
		t.Errorf("unexpected token request form: %v", gotForm)
	}
}

func TestRenew_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"new-access"}`))
	}))
	defer srv.Close()

	m := New("old", "keep-me", "cid", "secret", srv.URL, "hhbot/1.0", srv.Client(), discardLogger())
	if err := m.Renew(context.Background()); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if m.refreshToken != "keep-me" {
		t.Errorf("refresh token changed to %q, want keep-me", m.refreshToken)
	}
}

func TestRenew_FailsClosedWithoutRefreshToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	m := New("access", "", "cid", "secret", srv.URL, "hhbot/1.0", srv.Client(), discardLogger())
	if err := m.Renew(context.Background()); err == nil {
		t.Fatal("expected error without refresh token, got nil")
	}
	if called {
		t.Error("renewal made a network call despite missing refresh token")
	}
}

func TestRenew_FailsClosedWithoutClientCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	m := New("access", "refresh", "", "", srv.URL, "hhbot/1.0", srv.Client(), discardLogger())
	if err := m.Renew(context.Background()); err == nil {
		t.Fatal("expected error without client credentials, got nil")
	}
	if called {
		t.Error("renewal made a network call despite missing client credentials")
	}
}

func TestRenew_EndpointRejectionKeepsOldToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	m := New("old-access", "refresh", "cid", "secret", srv.URL, "hhbot/1.0", srv.Client(), discardLogger())
	if err := m.Renew(context.Background()); err == nil {
		t.Fatal("expected error from rejected renewal, got nil")
	}
	if m.Token() != "old-access" {
		t.Errorf("access token changed on failed renewal: %q", m.Token())
	}
}

func TestAuthorize_SetsBearerAndUserAgent(t *testing.T) {
	m := New("tok", "", "", "", "", "hhbot/1.0 (test@example.com)", http.DefaultClient, discardLogger())

	req, _ := http.NewRequest(http.MethodGet, "http://hh.test/vacancies", nil)
	m.Authorize(req)

	if got := req.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("User-Agent"); got != "hhbot/1.0 (test@example.com)" {
		t.Errorf("User-Agent = %q", got)
	}
}
