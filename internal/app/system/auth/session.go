package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// DefaultCookieName is the cookie that carries the session token.
const DefaultCookieName = "token"

// ErrNoSession means the request carries no token that verifies.
var ErrNoSession = errors.New("auth: no valid session")

// ErrUserNotFound is returned by a UserFetcher when the token's user no
// longer exists.
var ErrUserNotFound = errors.New("auth: user not found")

// UserFetcher reloads the caller on each request so that deleted accounts
// lose access and role changes apply before the token expires. It returns
// ErrUserNotFound for a missing user; any other error is a lookup failure.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*Identity, error)
}

// IdentityHandler is an HTTP handler that receives the authenticated caller.
type IdentityHandler func(w http.ResponseWriter, r *http.Request, id Identity)

// SessionManager authenticates requests from the token cookie or a Bearer
// header and manages the cookie's lifecycle.
type SessionManager struct {
	tokens     *TokenManager
	cookieName string
	domain     string
	secure     bool
	fetcher    UserFetcher
	log        *zap.Logger
}

// NewSessionManager returns a manager using tokens. secure marks the cookie
// Secure and should be true outside local development.
func NewSessionManager(tokens *TokenManager, cookieName, domain string, secure bool, logger *zap.Logger) *SessionManager {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		tokens:     tokens,
		cookieName: cookieName,
		domain:     domain,
		secure:     secure,
		log:        logger,
	}
}

// SetUserFetcher enables the per-request existence check.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// Tokens exposes the token manager for login and registration.
func (sm *SessionManager) Tokens() *TokenManager { return sm.tokens }

/*─────────────────────────────────────────────────────────────────────────────*
| Cookie                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// StartSession issues a token for id and sets it as the session cookie.
func (sm *SessionManager) StartSession(w http.ResponseWriter, id Identity) error {
	token, exp, err := sm.tokens.Issue(id)
	if err != nil {
		return err
	}
	sm.SetCookie(w, token, exp)
	return nil
}

// SetCookie writes the session cookie.
func (sm *SessionManager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		Domain:   sm.domain,
		Expires:  expires,
		MaxAge:   int(sm.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		Domain:   sm.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// tokensFrom returns the candidate tokens in the order they are tried:
// the cookie, then a Bearer header.
func (sm *SessionManager) tokensFrom(r *http.Request) []string {
	var out []string
	if c, err := r.Cookie(sm.cookieName); err == nil && c.Value != "" {
		out = append(out, c.Value)
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		if tok := strings.TrimSpace(h[7:]); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Identify resolves the caller without writing a response. A stale cookie
// does not hide a valid Bearer token. It returns ErrNoSession when no token
// verifies and ErrUserNotFound when the token's user is gone; other errors
// come from the UserFetcher.
func (sm *SessionManager) Identify(r *http.Request) (Identity, error) {
	var (
		id       Identity
		verified bool
	)
	for _, tok := range sm.tokensFrom(r) {
		v, err := sm.tokens.Verify(tok)
		if err == nil {
			id, verified = v, true
			break
		}
	}
	if !verified {
		return Identity{}, ErrNoSession
	}
	if sm.fetcher == nil {
		return id, nil
	}
	fresh, err := sm.fetcher.FetchUser(r.Context(), id.ID.Hex())
	if err != nil {
		return Identity{}, err
	}
	if fresh == nil {
		return Identity{}, ErrUserNotFound
	}
	return *fresh, nil
}

// Authenticate puts the caller's Identity on the request context. Requests
// without a valid session get 401; a failed user lookup is logged and gets
// 500.
func (sm *SessionManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := sm.Identify(r)
		switch {
		case err == nil:
			next.ServeHTTP(w, withIdentity(r, id))
		case errors.Is(err, ErrNoSession), errors.Is(err, ErrUserNotFound):
			unauthorized(w)
		default:
			sm.log.Error("session user lookup failed", zap.Error(err), zap.String("path", r.URL.Path))
			jsonutil.Write(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
	})
}

// RequireAdmin rejects non-admin callers with 403. It must run after
// Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CurrentIdentity(r)
		if !ok {
			unauthorized(w)
			return
		}
		if !id.IsAdmin {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handle adapts fn to an http.HandlerFunc that passes the caller set by
// Authenticate.
func (sm *SessionManager) Handle(fn IdentityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := CurrentIdentity(r)
		if !ok {
			unauthorized(w)
			return
		}
		fn(w, r, id)
	}
}

// HandleAdmin is Handle behind RequireAdmin.
func (sm *SessionManager) HandleAdmin(fn IdentityHandler) http.HandlerFunc {
	return RequireAdmin(sm.Handle(fn)).ServeHTTP
}

func unauthorized(w http.ResponseWriter) {
	jsonutil.Write(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
}

func forbidden(w http.ResponseWriter) {
	jsonutil.Write(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
}
