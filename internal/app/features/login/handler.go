// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/hearth/internal/app/features/errors"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/auditlog"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/avatars"
	"github.com/dalemusser/hearth/internal/app/system/inputval"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/metrics"
	"github.com/dalemusser/hearth/internal/app/system/normalize"
	"github.com/dalemusser/hearth/internal/app/system/ratelimit"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
	SessionMgr *auth.SessionManager
	Users      *userstore.Store
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	Limiter    *ratelimit.LoginLimiter // nil disables rate limiting
	BcryptCost int
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	limiter *ratelimit.LoginLimiter,
	bcryptCost int,
	logger *zap.Logger,
) *Handler {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Handler{
		Log:        logger,
		ErrLog:     errLog,
		SessionMgr: sessionMgr,
		Users:      userstore.New(db),
		AuditLog:   audit,
		Metrics:    m,
		Limiter:    limiter,
		BcryptCost: bcryptCost,
	}
}

// authResponse is the body of a successful register or login.
type authResponse struct {
	Message string            `json:"message"`
	User    models.PublicUser `json:"user"`
}

func publicUser(u models.User) models.PublicUser {
	p := u.Public()
	p.AvatarURL = avatars.NormalizePtr(p.AvatarURL)
	return p
}

func identityOf(u models.User) auth.Identity {
	return auth.Identity{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/register                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100" label:"Name"`
	Email    string `json:"email" validate:"required,max=254,emailaddr" label:"Email"`
	Phone    string `json:"phone" validate:"required,max=32" label:"Phone"`
	Password string `json:"password" validate:"required,min=6,max=72" label:"Password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Register creates an account and signs the new user in. isAdmin is only
// honored when an admin is calling or when no users exist yet.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "register: decode body", err, "Invalid request body.")
		return
	}
	req.Name = normalize.Name(req.Name)
	req.Email = normalize.Email(req.Email)
	req.Phone = normalize.Phone(req.Phone)
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		h.ErrLog.BadRequest(w, r, userstore.ErrDuplicateEmail.Error())
		return
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.LogServerError(w, r, "register: lookup email", err)
		return
	}

	isAdmin := false
	if req.IsAdmin {
		allowed, err := h.mayGrantAdmin(ctx, r)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "register: check admin grant", err)
			return
		}
		isAdmin = allowed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.BcryptCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: hash password", err)
		return
	}

	u, err := h.Users.Create(ctx, models.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		h.ErrLog.BadRequest(w, r, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: create user", err)
		return
	}

	if err := h.SessionMgr.StartSession(w, identityOf(u)); err != nil {
		h.ErrLog.LogServerError(w, r, "register: issue token", err)
		return
	}

	h.AuditLog.Registered(ctx, r, u.ID, u.Email, u.IsAdmin)
	h.Metrics.Registered()
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.Bool("is_admin", u.IsAdmin))

	jsonutil.Created(w, authResponse{Message: "User registered successfully", User: publicUser(u)})
}

// mayGrantAdmin reports whether a registration may create an admin: the
// caller is an admin, or this is the first account.
func (h *Handler) mayGrantAdmin(ctx context.Context, r *http.Request) (bool, error) {
	id, err := h.SessionMgr.Identify(r)
	switch {
	case err == nil:
		if id.IsAdmin {
			return true, nil
		}
	case !errors.Is(err, auth.ErrNoSession) && !errors.Is(err, auth.ErrUserNotFound):
		return false, err
	}
	n, err := h.Users.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type loginRequest struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "login: decode body", err, "Invalid request body.")
		return
	}
	req.Email = normalize.Email(req.Email)
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, req.Email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, req.Email)
			h.Metrics.Login(false)
			h.ErrLog.TooManyRequests(w, r, reason)
			return
		}
	}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, req.Email)
		h.Metrics.Login(false)
		h.ErrLog.BadRequest(w, r, "invalid email")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: find user", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, req.Email)
		h.Metrics.Login(false)
		h.ErrLog.BadRequest(w, r, "invalid password")
		return
	}

	if err := h.SessionMgr.StartSession(w, identityOf(*u)); err != nil {
		h.ErrLog.LogServerError(w, r, "login: issue token", err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)
	h.Metrics.Login(true)

	jsonutil.OK(w, authResponse{Message: "Login successful", User: publicUser(*u)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/logout                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Logout clears the session cookie. It succeeds with or without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var userID *primitive.ObjectID
	if id, err := h.SessionMgr.Identify(r); err == nil {
		userID = &id.ID
	}
	h.SessionMgr.ClearCookie(w)
	h.AuditLog.Logout(r.Context(), r, userID)
	jsonutil.Message(w, "Logged out successfully")
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/me                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Unauthorized(w, r, "authentication required")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "me: load user", err)
		return
	}
	jsonutil.OK(w, publicUser(*u))
}
