// Package auditlog records authentication and admin actions to MongoDB
// and/or the structured log.
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/hearth/internal/app/store/audit"
	"github.com/dalemusser/hearth/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for Config fields.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config selects where each category goes.
type Config struct {
	Auth  string
	Admin string
}

// Logger writes audit events. A nil *Logger discards everything.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Record writes event to the destinations configured for its category.
func (l *Logger) Record(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := All
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}

	if setting == Off || setting == "" {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func fromRequest(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Authentication events                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.UserID = &userID
	e.Details = map[string]string{"email": email}
	l.Record(ctx, e)
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginFailedUserNotFound)
	e.Success = false
	e.FailureReason = "user not found"
	e.Details = map[string]string{"attempted_email": email}
	l.Record(ctx, e)
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginFailedWrongPassword)
	e.UserID = &userID
	e.Success = false
	e.FailureReason = "wrong password"
	e.Details = map[string]string{"email": email}
	l.Record(ctx, e)
}

func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit)
	e.Success = false
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"attempted_email": email}
	l.Record(ctx, e)
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userID *primitive.ObjectID) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLogout)
	e.UserID = userID
	l.Record(ctx, e)
}

func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string, isAdmin bool) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventRegistered)
	e.UserID = &userID
	e.Details = map[string]string{"email": email}
	if isAdmin {
		e.Details["is_admin"] = "true"
	}
	l.Record(ctx, e)
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventPasswordChanged)
	e.UserID = &userID
	l.Record(ctx, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin events                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// Admin records an admin action by actor. target is the affected user, if
// any; details may be nil.
func (l *Logger) Admin(ctx context.Context, r *http.Request, eventType string, actor primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	e := fromRequest(r, audit.CategoryAdmin, eventType)
	e.ActorID = &actor
	e.UserID = target
	e.Details = details
	l.Record(ctx, e)
}

// System records an admin-category action with no HTTP request, such as a
// scheduled leaderboard snapshot.
func (l *Logger) System(ctx context.Context, eventType string, details map[string]string) {
	l.Record(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		IP:        "system",
		Success:   true,
		Details:   details,
	})
}
