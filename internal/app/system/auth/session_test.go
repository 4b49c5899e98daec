package auth_test

import (
	"context"
	"errors"
	"strings"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/hearth/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubFetcher map[string]*auth.Identity

func (s stubFetcher) FetchUser(_ context.Context, userID string) (*auth.Identity, error) {
	if id, ok := s[userID]; ok {
		return id, nil
	}
	return nil, auth.ErrUserNotFound
}

type failingFetcher struct{ err error }

func (f failingFetcher) FetchUser(context.Context, string) (*auth.Identity, error) {
	return nil, f.err
}

func newTestSessionManager(t *testing.T) (*auth.SessionManager, *fakeClock) {
	t.Helper()
	tm, clk := newTestTokens(t)
	return auth.NewSessionManager(tm, "", "", false, zap.NewNop()), clk
}

func okHandler(seen *auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.CurrentIdentity(r); ok && seen != nil {
			*seen = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestStartSession_CookieAttributes(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	rec := httptest.NewRecorder()

	if err := sm.StartSession(rec, auth.Identity{ID: primitive.NewObjectID(), Email: "a@b.co"}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "token" {
		t.Errorf("cookie name = %q, want token", c.Name)
	}
	if !c.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Errorf("SameSite = %v, want Strict", c.SameSite)
	}
	if c.MaxAge != 3600 {
		t.Errorf("MaxAge = %d, want 3600", c.MaxAge)
	}
	if c.Path != "/" {
		t.Errorf("Path = %q, want /", c.Path)
	}
}

func TestClearCookie(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	sm.ClearCookie(rec)

	c := rec.Result().Cookies()[0]
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("cleared cookie = %+v", c)
	}
}

func TestAuthenticate_NoToken_Returns401(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	rec := httptest.NewRecorder()

	sm.Authenticate(okHandler(nil)).ServeHTTP(rec, httptest.NewRequest("GET", "/api/tasks", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthenticate_CookieAndBearer(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	want := auth.Identity{ID: primitive.NewObjectID(), Email: "a@b.co"}
	tok, _, err := sm.Tokens().Issue(want)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cookieReq := httptest.NewRequest("GET", "/api/tasks", nil)
	cookieReq.AddCookie(&http.Cookie{Name: "token", Value: tok})

	bearerReq := httptest.NewRequest("GET", "/api/tasks", nil)
	bearerReq.Header.Set("Authorization", "Bearer "+tok)

	for name, req := range map[string]*http.Request{"cookie": cookieReq, "bearer": bearerReq} {
		t.Run(name, func(t *testing.T) {
			var seen auth.Identity
			rec := httptest.NewRecorder()
			sm.Authenticate(okHandler(&seen)).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			if seen != want {
				t.Errorf("identity = %+v, want %+v", seen, want)
			}
		})
	}
}

func TestAuthenticate_ExpiredToken_Returns401(t *testing.T) {
	sm, clk := newTestSessionManager(t)
	tok, _, _ := sm.Tokens().Issue(auth.Identity{ID: primitive.NewObjectID()})
	clk.t = clk.t.Add(time.Hour + time.Second)

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: tok})
	rec := httptest.NewRecorder()
	sm.Authenticate(okHandler(nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthenticate_FetcherRefreshesAndRejects(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	live := auth.Identity{ID: primitive.NewObjectID(), Email: "live@b.co"}
	gone := auth.Identity{ID: primitive.NewObjectID(), Email: "gone@b.co"}
	promoted := live
	promoted.IsAdmin = true
	sm.SetUserFetcher(stubFetcher{live.ID.Hex(): &promoted})

	liveTok, _, _ := sm.Tokens().Issue(live)
	goneTok, _, _ := sm.Tokens().Issue(gone)

	var seen auth.Identity
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+liveTok)
	rec := httptest.NewRecorder()
	sm.Authenticate(okHandler(&seen)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !seen.IsAdmin {
		t.Errorf("live user: status %d, identity %+v", rec.Code, seen)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+goneTok)
	rec = httptest.NewRecorder()
	sm.Authenticate(okHandler(nil)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted user: expected %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthenticate_FetcherFailureReturns500(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	sm.SetUserFetcher(failingFetcher{err: errors.New("server selection timeout")})
	tok, _, _ := sm.Tokens().Issue(auth.Identity{ID: primitive.NewObjectID()})

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	called := false
	sm.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if called {
		t.Error("handler should not run when the user lookup fails")
	}
	if strings.Contains(rec.Body.String(), "server selection") {
		t.Errorf("body leaks the lookup error: %s", rec.Body.String())
	}

	if _, err := sm.Identify(req); err == nil || errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrNoSession) {
		t.Errorf("Identify err = %v, want the fetcher's error", err)
	}
}

func TestAuthenticate_StaleCookieFallsBackToBearer(t *testing.T) {
	sm, clk := newTestSessionManager(t)
	stale, _, _ := sm.Tokens().Issue(auth.Identity{ID: primitive.NewObjectID()})
	clk.t = clk.t.Add(2 * time.Hour)
	want := auth.Identity{ID: primitive.NewObjectID(), Email: "fresh@b.co"}
	fresh, _, _ := sm.Tokens().Issue(want)

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: stale})
	req.Header.Set("Authorization", "Bearer "+fresh)

	var seen auth.Identity
	rec := httptest.NewRecorder()
	sm.Authenticate(okHandler(&seen)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if seen != want {
		t.Errorf("identity = %+v, want %+v", seen, want)
	}

	req = httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
	if _, err := sm.Identify(req); !errors.Is(err, auth.ErrNoSession) {
		t.Errorf("bad cookie alone: err = %v, want ErrNoSession", err)
	}
}

func TestHandleAdmin(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	called := false
	h := sm.HandleAdmin(func(w http.ResponseWriter, r *http.Request, id auth.Identity) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		id     *auth.Identity
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &auth.Identity{ID: primitive.NewObjectID()}, http.StatusForbidden},
		{"admin", &auth.Identity{ID: primitive.NewObjectID(), IsAdmin: true}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest("DELETE", "/api/tasks/x", nil)
			if tt.id != nil {
				req = auth.WithTestIdentity(req, *tt.id)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if called != (tt.status == http.StatusNoContent) {
				t.Errorf("handler called = %v", called)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	member := auth.WithTestIdentity(httptest.NewRequest("GET", "/", nil), auth.Identity{ID: primitive.NewObjectID()})
	rec := httptest.NewRecorder()
	auth.RequireAdmin(okHandler(nil)).ServeHTTP(rec, member)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member: expected %d, got %d", http.StatusForbidden, rec.Code)
	}

	admin := auth.WithTestIdentity(httptest.NewRequest("GET", "/", nil), auth.Identity{ID: primitive.NewObjectID(), IsAdmin: true})
	rec = httptest.NewRecorder()
	auth.RequireAdmin(okHandler(nil)).ServeHTTP(rec, admin)
	if rec.Code != http.StatusOK {
		t.Errorf("admin: expected %d, got %d", http.StatusOK, rec.Code)
	}
}
