// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/hearth/internal/app/system/auditlog"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/avatars"
	"github.com/dalemusser/hearth/internal/app/system/inputval"
	"github.com/dalemusser/hearth/internal/app/system/leaderboard"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// devJWTSecret is the default signing secret. It is refused in prod.
const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for Hearth.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: HEARTH_MONGO_URI, HEARTH_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "hearth", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},

	// Sessions
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "Session token signing secret (must be strong in production)"},
	{Name: "session_cookie_name", Default: auth.DefaultCookieName, Desc: "Session cookie name"},
	{Name: "session_ttl", Default: "1h", Desc: "Session token lifetime (e.g., 1h, 30m)"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "cors_origin", Default: "http://localhost:3000", Desc: "Browser origin allowed to call the API with credentials"},

	// Uploads
	{Name: "uploads_dir", Default: "./uploads", Desc: "Directory for uploaded files (served under /uploads)"},
	{Name: "avatar_max_bytes", Default: int(avatars.DefaultMaxBytes), Desc: "Largest accepted avatar upload in bytes"},

	// Domain tuning
	{Name: "leaderboard_size", Default: leaderboard.DefaultLimit, Desc: "Default number of leaderboard entries"},
	{Name: "message_feed_cap", Default: 5, Desc: "Number of messages kept in the feed"},
	{Name: "bcrypt_cost", Default: bcrypt.DefaultCost, Desc: "bcrypt cost for password hashes"},
	{Name: "login_rate_limit", Default: 5, Desc: "Login attempts allowed per client IP and per email within login_rate_window"},
	{Name: "login_rate_window", Default: "15m", Desc: "Window for login_rate_limit"},
	{Name: "leaderboard_snapshot_interval", Default: "0s", Desc: "How often to refresh the weekly leaderboard snapshot (0 disables)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of an admin to create or promote on startup"},
	{Name: "admin_password", Default: "", Desc: "Password for admin_email when the account is created"},
	{Name: "admin_name", Default: "Administrator", Desc: "Display name for admin_email when the account is created"},
}

// LoadConfig loads WAFFLE core config and Hearth's app config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, HEARTH_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HEARTH", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:         appValues.String("jwt_secret"),
		SessionCookieName: appValues.String("session_cookie_name"),
		SessionTTL:        appValues.Duration("session_ttl", auth.DefaultTTL),
		SessionDomain:     appValues.String("session_domain"),

		CORSOrigin: strings.TrimRight(appValues.String("cors_origin"), "/"),

		UploadsDir:     appValues.String("uploads_dir"),
		AvatarMaxBytes: int64(appValues.Int("avatar_max_bytes")),

		LeaderboardSize:             appValues.Int("leaderboard_size"),
		MessageFeedCap:              appValues.Int("message_feed_cap"),
		BcryptCost:                  appValues.Int("bcrypt_cost"),
		LoginRateLimit:              appValues.Int("login_rate_limit"),
		LoginRateWindow:             appValues.Duration("login_rate_window", 15*time.Minute),
		LeaderboardSnapshotInterval: appValues.Duration("leaderboard_snapshot_interval", 0),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
		AdminName:     appValues.String("admin_name"),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("operation timeouts overridden from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	if len(appCfg.JWTSecret) < auth.MinSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters", auth.MinSecretLen)
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.JWTSecret == devJWTSecret {
		return fmt.Errorf("jwt_secret must be changed from the default in prod")
	}
	if appCfg.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}

	// Browsers reject a wildcard origin on credentialed requests.
	if appCfg.CORSOrigin == "" || appCfg.CORSOrigin == "*" {
		return fmt.Errorf("cors_origin must name a single origin (e.g., https://hearth.example.com)")
	}
	if !strings.HasPrefix(appCfg.CORSOrigin, "http://") && !strings.HasPrefix(appCfg.CORSOrigin, "https://") {
		return fmt.Errorf("cors_origin must start with http:// or https://")
	}

	if appCfg.UploadsDir == "" {
		return fmt.Errorf("uploads_dir must be set")
	}
	if appCfg.AvatarMaxBytes <= 0 {
		return fmt.Errorf("avatar_max_bytes must be positive")
	}
	if appCfg.LeaderboardSize < 0 || appCfg.LeaderboardSize > leaderboard.MaxLimit {
		return fmt.Errorf("leaderboard_size must be between 0 and %d", leaderboard.MaxLimit)
	}
	if appCfg.MessageFeedCap <= 0 {
		return fmt.Errorf("message_feed_cap must be positive")
	}
	if appCfg.BcryptCost < bcrypt.MinCost || appCfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if appCfg.LoginRateLimit <= 0 || appCfg.LoginRateWindow <= 0 {
		return fmt.Errorf("login_rate_limit and login_rate_window must be positive")
	}
	if appCfg.LeaderboardSnapshotInterval < 0 {
		return fmt.Errorf("leaderboard_snapshot_interval must not be negative")
	}

	for key, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch v {
		case auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, v)
		}
	}

	if appCfg.AdminEmail != "" {
		if !inputval.IsValidEmail(appCfg.AdminEmail) {
			return fmt.Errorf("admin_email is not a valid email address")
		}
		if len(appCfg.AdminPassword) < 6 {
			return fmt.Errorf("admin_password must be at least 6 characters when admin_email is set")
		}
	}

	return nil
}
