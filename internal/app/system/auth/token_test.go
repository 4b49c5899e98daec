package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long!"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTokens(t *testing.T) (*auth.TokenManager, *fakeClock) {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm.SetClock(clk.Now)
	return tm, clk
}

func TestNewTokenManager_ShortSecret(t *testing.T) {
	if _, err := auth.NewTokenManager("short", time.Hour); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	tm, _ := newTestTokens(t)
	want := auth.Identity{ID: primitive.NewObjectID(), Email: "ann@example.com", IsAdmin: true}

	tok, exp, err := tm.Issue(want)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("expiry = %v, want one hour after issue", exp)
	}

	got, err := tm.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != want {
		t.Errorf("Verify() = %+v, want %+v", got, want)
	}
}

func TestVerify_ExpiresAfterOneHour(t *testing.T) {
	tm, clk := newTestTokens(t)
	tok, _, err := tm.Issue(auth.Identity{ID: primitive.NewObjectID(), Email: "a@b.co"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clk.t = clk.t.Add(3599 * time.Second)
	if _, err := tm.Verify(tok); err != nil {
		t.Errorf("token rejected before expiry: %v", err)
	}

	clk.t = clk.t.Add(2 * time.Second)
	if _, err := tm.Verify(tok); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Verify after 3601s err = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	tm, clk := newTestTokens(t)
	id := auth.Identity{ID: primitive.NewObjectID(), Email: "a@b.co"}
	good, _, _ := tm.Issue(id)
	forged, _, _ := tm.Issue(auth.Identity{ID: id.ID, Email: id.Email, IsAdmin: true})
	goodParts := strings.Split(good, ".")
	forgedParts := strings.Split(forged, ".")
	tampered := forgedParts[0] + "." + forgedParts[1] + "." + goodParts[2]

	other, _ := auth.NewTokenManager(strings.Repeat("x", 40), 0)
	other.SetClock(clk.Now)
	foreign, _, _ := other.Issue(id)

	noneTok, _ := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
		UserID: id.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{UserID: id.ID.Hex()}).
		SignedString([]byte(testSecret))

	badID, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: "nope",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered", tampered},
		{"other secret", foreign},
		{"alg none", noneTok},
		{"missing exp", noExp},
		{"bad user id", badID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tm.Verify(tt.token); !errors.Is(err, auth.ErrInvalidToken) {
				t.Errorf("Verify() err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
