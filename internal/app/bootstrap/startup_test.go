package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/indexes"
	"github.com/dalemusser/hearth/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig(t *testing.T) AppConfig {
	t.Helper()
	return AppConfig{
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabase:     "hearth_test",
		JWTSecret:         testutil.TestJWTSecret,
		SessionCookieName: "token",
		SessionTTL:        time.Hour,
		CORSOrigin:        "http://localhost:3000",
		UploadsDir:        t.TempDir(),
		AvatarMaxBytes:    1 << 20,
		LeaderboardSize:   10,
		MessageFeedCap:    5,
		BcryptCost:        bcrypt.MinCost,
		LoginRateLimit:    5,
		LoginRateWindow:   time.Minute,
		AuditLogAuth:      "all",
		AuditLogAdmin:     "all",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", "dev", func(*AppConfig) {}, ""},
		{"bad mongo uri", "dev", func(c *AppConfig) { c.MongoURI = "postgres://x" }, "MongoDB URI"},
		{"short secret", "dev", func(c *AppConfig) { c.JWTSecret = "short" }, "jwt_secret"},
		{"default secret in prod", "prod", func(c *AppConfig) { c.JWTSecret = devJWTSecret }, "jwt_secret"},
		{"default secret in dev", "dev", func(c *AppConfig) { c.JWTSecret = devJWTSecret }, ""},
		{"wildcard origin", "dev", func(c *AppConfig) { c.CORSOrigin = "*" }, "cors_origin"},
		{"schemeless origin", "dev", func(c *AppConfig) { c.CORSOrigin = "example.com" }, "cors_origin"},
		{"zero feed cap", "dev", func(c *AppConfig) { c.MessageFeedCap = 0 }, "message_feed_cap"},
		{"leaderboard too big", "dev", func(c *AppConfig) { c.LeaderboardSize = 500 }, "leaderboard_size"},
		{"bcrypt cost", "dev", func(c *AppConfig) { c.BcryptCost = 1 }, "bcrypt_cost"},
		{"audit mode", "dev", func(c *AppConfig) { c.AuditLogAdmin = "sometimes" }, "audit_log_admin"},
		{"negative interval", "dev", func(c *AppConfig) { c.LeaderboardSnapshotInterval = -time.Second }, "leaderboard_snapshot_interval"},
		{"admin without password", "dev", func(c *AppConfig) { c.AdminEmail = "boss@example.com" }, "admin_password"},
		{"admin bad email", "dev", func(c *AppConfig) {
			c.AdminEmail = "boss"
			c.AdminPassword = "secret1"
		}, "admin_email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateConfig: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func setupDeps(t *testing.T) DBDeps {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, testLogger()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	// MongoClient is left nil so Shutdown does not disconnect the shared
	// test client.
	return DBDeps{MongoDatabase: db}
}

func TestStartup_EnsuresAdmin(t *testing.T) {
	deps := setupDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, deps.MongoDatabase)
	existing := fx.CreateUser(ctx, "Pat Existing", "pat@example.com", 12)

	cfg := validConfig(t)
	cfg.AdminEmail = "boss@example.com"
	cfg.AdminPassword = "hunter22"
	cfg.AdminName = "The Boss"
	if err := Startup(ctx, &config.CoreConfig{Env: "dev"}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}

	users := userstore.New(deps.MongoDatabase)
	boss, err := users.GetByEmail(ctx, "boss@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if !boss.IsAdmin || boss.Name != "The Boss" {
		t.Errorf("boss = %+v", boss)
	}
	if bcrypt.CompareHashAndPassword([]byte(boss.PasswordHash), []byte("hunter22")) != nil {
		t.Error("admin password not set")
	}
	if _, err := os.Stat(filepath.Join(cfg.UploadsDir, "avatars")); err != nil {
		t.Errorf("avatars dir: %v", err)
	}

	// Promoting keeps the existing password and balance.
	cfg.AdminEmail = "PAT@example.com"
	if err := Startup(ctx, &config.CoreConfig{Env: "dev"}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup promote: %v", err)
	}
	pat, err := users.GetByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !pat.IsAdmin || pat.AccountBalance != 12 || pat.PasswordHash != existing.PasswordHash {
		t.Errorf("promoted = %+v", pat)
	}
	if n, _ := users.Count(ctx); n != 2 {
		t.Errorf("users = %d, want 2", n)
	}
}

func TestStartupShutdown_SnapshotWorker(t *testing.T) {
	deps := setupDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validConfig(t)
	cfg.LeaderboardSnapshotInterval = time.Hour
	if err := Startup(ctx, &config.CoreConfig{Env: "dev"}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	runMu.Lock()
	started := snapshotWorker != nil
	runMu.Unlock()
	if !started {
		t.Fatal("snapshot worker not started")
	}

	if err := Shutdown(ctx, &config.CoreConfig{Env: "dev"}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	runMu.Lock()
	defer runMu.Unlock()
	if snapshotWorker != nil || loginLimiter != nil {
		t.Error("Shutdown left services running")
	}
}

func buildTestHandler(t *testing.T) (http.Handler, AppConfig, *mongo.Database) {
	t.Helper()
	deps := setupDeps(t)
	deps.MongoClient = deps.MongoDatabase.Client()
	cfg := validConfig(t)
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	t.Cleanup(func() {
		runMu.Lock()
		defer runMu.Unlock()
		if loginLimiter != nil {
			loginLimiter.Stop()
			loginLimiter = nil
		}
	})
	return h, cfg, deps.MongoDatabase
}

func TestBuildHandler_Surfaces(t *testing.T) {
	h, _, _ := buildTestHandler(t)

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/tasks", http.StatusUnauthorized},
		{"GET", "/api/events", http.StatusUnauthorized},
		{"GET", "/api/messages", http.StatusUnauthorized},
		{"GET", "/api/users/leaderboard", http.StatusUnauthorized},
		{"GET", "/api/auth/me", http.StatusUnauthorized},
		{"GET", "/api/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := testutil.Serve(t, h, tt.method, tt.path, nil, nil); rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestBuildHandler_CORSPreflight(t *testing.T) {
	h, cfg, _ := buildTestHandler(t)

	req := httptest.NewRequest("OPTIONS", "/api/auth/login", nil)
	req.Header.Set("Origin", cfg.CORSOrigin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != cfg.CORSOrigin {
		t.Errorf("Allow-Origin = %q, want %q", got, cfg.CORSOrigin)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/auth/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestBuildHandler_RegisterThenMe(t *testing.T) {
	h, _, _ := buildTestHandler(t)

	rec := testutil.Serve(t, h, "POST", "/api/auth/register", map[string]any{
		"name":     "First Resident",
		"email":    "first@example.com",
		"phone":    "555-0100",
		"password": "secret1",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", rec.Code, rec.Body)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie")
	}

	rec = testutil.Serve(t, h, "GET", "/api/auth/me", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "first@example.com") {
		t.Errorf("me body = %s", rec.Body)
	}

	rec = testutil.Serve(t, h, "GET", "/api/tasks", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Errorf("tasks with session = %d", rec.Code)
	}
}

func TestBuildHandler_ServesUploads(t *testing.T) {
	h, cfg, _ := buildTestHandler(t)

	dir := filepath.Join(cfg.UploadsDir, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := testutil.Serve(t, h, "GET", "/uploads/avatars/a.txt", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Errorf("uploads = %d %q", rec.Code, rec.Body)
	}
}
