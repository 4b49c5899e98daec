package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TestJWTSecret signs tokens issued by NewSessionManager.
const TestJWTSecret = "hearth-test-secret-at-least-32-bytes"

// NewSessionManager returns a session manager with a one-hour token TTL.
// fetcher may be nil to skip the per-request user check.
func NewSessionManager(t *testing.T, fetcher auth.UserFetcher) *auth.SessionManager {
	t.Helper()
	tm, err := auth.NewTokenManager(TestJWTSecret, auth.DefaultTTL)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	sm := auth.NewSessionManager(tm, auth.DefaultCookieName, "", false, zap.NewNop())
	if fetcher != nil {
		sm.SetUserFetcher(fetcher)
	}
	return sm
}

// SessionCookie issues a session cookie for id.
func SessionCookie(t *testing.T, sm *auth.SessionManager, id auth.Identity) *http.Cookie {
	t.Helper()
	token, _, err := sm.Tokens().Issue(id)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &http.Cookie{Name: auth.DefaultCookieName, Value: token}
}

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewJSONRequest builds a request whose body is body encoded as JSON. A
// string body is sent verbatim.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// IdentityOf returns the auth identity for a fixture user.
func IdentityOf(u models.User) auth.Identity {
	return auth.Identity{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
}

// DecodeJSON decodes rec's body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// Serve sends a JSON request through h, attaching cookie when non-nil.
func Serve(t *testing.T, h http.Handler, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := NewJSONRequest(t, method, target, body)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
