// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	errorsfeature "github.com/dalemusser/hearth/internal/app/features/errors"
	eventsfeature "github.com/dalemusser/hearth/internal/app/features/events"
	healthfeature "github.com/dalemusser/hearth/internal/app/features/health"
	loginfeature "github.com/dalemusser/hearth/internal/app/features/login"
	messagesfeature "github.com/dalemusser/hearth/internal/app/features/messages"
	tasksfeature "github.com/dalemusser/hearth/internal/app/features/tasks"
	usersfeature "github.com/dalemusser/hearth/internal/app/features/users"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/avatars"
	"github.com/dalemusser/hearth/internal/app/system/metrics"
	"github.com/dalemusser/hearth/internal/app/system/ratelimit"
	"github.com/dalemusser/hearth/internal/app/system/reqlog"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. Every API route lives under /api and reads its
// identity from the session token; /uploads, /health and /metrics sit
// beside it.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	dev := coreCfg != nil && coreCfg.Env == "dev"
	secure := coreCfg != nil && coreCfg.Env == "prod"

	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.SessionTTL)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr := auth.NewSessionManager(tokens, appCfg.SessionCookieName, appCfg.SessionDomain, secure, logger)

	// Fetch the user on each request so deletions and role changes take
	// effect before the token expires.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	db := deps.MongoDatabase
	errLog := errorsfeature.NewErrorLogger(logger, dev)
	auditLog := newAuditLogger(appCfg, deps, logger)
	m := metrics.New()
	avatarStore := avatars.NewStore(appCfg.UploadsDir, appCfg.AvatarMaxBytes)

	limiter := ratelimit.NewLoginLimiter(appCfg.LoginRateLimit, appCfg.LoginRateWindow)
	runMu.Lock()
	if loginLimiter != nil {
		loginLimiter.Stop()
	}
	loginLimiter = limiter
	runMu.Unlock()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(reqlog.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{appCfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Uploaded avatars
	r.Handle("/uploads/*", fileserver.Handler("/uploads", appCfg.UploadsDir))

	r.Route("/api", func(api chi.Router) {
		loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, auditLog, m, limiter, appCfg.BcryptCost, logger)
		api.Mount("/auth", loginfeature.Routes(loginHandler, sessionMgr))

		usersHandler := usersfeature.NewHandler(db, errLog, auditLog, avatarStore, appCfg.BcryptCost, appCfg.LeaderboardSize, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

		tasksHandler := tasksfeature.NewHandler(db, errLog, auditLog, m, logger)
		api.Mount("/tasks", tasksfeature.Routes(tasksHandler, sessionMgr))

		eventsHandler := eventsfeature.NewHandler(db, errLog, auditLog, m, logger)
		api.Mount("/events", eventsfeature.Routes(eventsHandler, sessionMgr))

		messagesHandler := messagesfeature.NewHandler(db, errLog, auditLog, m, appCfg.MessageFeedCap, logger)
		api.Mount("/messages", messagesfeature.Routes(messagesHandler, sessionMgr))

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			errLog.NotFound(w, r, "Not found.")
		})
	})

	return r, nil
}
