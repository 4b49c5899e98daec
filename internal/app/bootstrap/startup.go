// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dalemusser/hearth/internal/app/store/audit"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/auditlog"
	"github.com/dalemusser/hearth/internal/app/system/avatars"
	"github.com/dalemusser/hearth/internal/app/system/leaderboard"
	"github.com/dalemusser/hearth/internal/app/system/ratelimit"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"github.com/dalemusser/hearth/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Long-lived services created during startup and stopped in Shutdown.
var (
	runMu          sync.Mutex
	snapshotWorker *workers.LeaderboardSnapshot
	loginLimiter   *ratelimit.LoginLimiter
)

// Startup runs one-time initialization after the DB is connected and
// indexes exist: the uploads directory, the bootstrap admin, and the
// leaderboard snapshot worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Join(appCfg.UploadsDir, avatars.Subdir), 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}

	auditLog := newAuditLogger(appCfg, deps, logger)

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, appCfg, deps, auditLog, logger); err != nil {
			return err
		}
	}

	if appCfg.LeaderboardSnapshotInterval > 0 {
		w := workers.NewLeaderboardSnapshot(
			leaderboard.NewSnapshotter(deps.MongoDatabase),
			logger,
			appCfg.LeaderboardSnapshotInterval,
		)
		w.Start()

		runMu.Lock()
		snapshotWorker = w
		runMu.Unlock()
	}
	return nil
}

func newAuditLogger(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
}

// ensureAdmin creates the configured admin or promotes an existing account
// with that email. An existing password is never replaced.
func ensureAdmin(ctx context.Context, appCfg AppConfig, deps DBDeps, auditLog *auditlog.Logger, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	cost := appCfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(appCfg.AdminPassword), cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	created, err := userstore.New(deps.MongoDatabase).EnsureAdmin(ctx, appCfg.AdminEmail, appCfg.AdminName, string(hash))
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	action := "promoted"
	if created {
		action = "created"
	}
	logger.Info("bootstrap admin ready", zap.String("email", appCfg.AdminEmail), zap.String("action", action))
	auditLog.System(ctx, audit.EventAdminBootstrapped, map[string]string{"email": appCfg.AdminEmail, "action": action})
	return nil
}
