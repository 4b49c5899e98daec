// internal/app/features/users/users.go
package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/hearth/internal/app/store/audit"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/authz"
	"github.com/dalemusser/hearth/internal/app/system/avatars"
	"github.com/dalemusser/hearth/internal/app/system/inputval"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/normalize"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/users                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	all, err := h.Users.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users", err)
		return
	}
	out := make([]models.PublicUser, 0, len(all))
	for _, u := range all {
		out = append(out, publicUser(u))
	}
	jsonutil.OK(w, out)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/users/{userId}                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Get returns one user. Members may only load themselves.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}
	if !authz.CanEditUser(id, uid.Hex()) {
		h.ErrLog.Forbidden(w, r, "You can only view your own account.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "User not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "get user", err)
		return
	}
	jsonutil.OK(w, publicUser(*u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/users (admin)                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type createRequest struct {
	Name           string `json:"name" validate:"required,max=100" label:"Name"`
	Email          string `json:"email" validate:"required,max=254,emailaddr" label:"Email"`
	Phone          string `json:"phone" validate:"required,max=32" label:"Phone"`
	Password       string `json:"password" validate:"required,min=6,max=72" label:"Password"`
	IsAdmin        bool   `json:"isAdmin"`
	AccountBalance int64  `json:"accountBalance"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req createRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "create user: decode body", err, "Invalid request body.")
		return
	}
	req.Name = normalize.Name(req.Name)
	req.Email = normalize.Email(req.Email)
	req.Phone = normalize.Phone(req.Phone)
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.BcryptCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user: hash password", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		PasswordHash:   string(hash),
		IsAdmin:        req.IsAdmin,
		AccountBalance: req.AccountBalance,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		h.ErrLog.BadRequest(w, r, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventUserCreated, id.ID, &u.ID, map[string]string{"email": u.Email})
	jsonutil.Created(w, publicUser(u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/users/{userId} (admin)                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// updateRequest replaces the required profile fields. The remaining
// fields are optional and left unchanged when omitted.
type updateRequest struct {
	Name           string  `json:"name" validate:"required,max=100" label:"Name"`
	Email          string  `json:"email" validate:"required,max=254,emailaddr" label:"Email"`
	Phone          string  `json:"phone" validate:"required,max=32" label:"Phone"`
	IsAdmin        *bool   `json:"isAdmin"`
	AccountBalance *int64  `json:"accountBalance"`
	Password       *string `json:"password" validate:"omitempty,min=6,max=72" label:"Password"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "update user: decode body", err, "Invalid request body.")
		return
	}
	req.Name = normalize.Name(req.Name)
	req.Email = normalize.Email(req.Email)
	req.Phone = normalize.Phone(req.Phone)
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}

	upd := userstore.Update{
		Name:           &req.Name,
		Email:          &req.Email,
		Phone:          &req.Phone,
		IsAdmin:        req.IsAdmin,
		AccountBalance: req.AccountBalance,
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), h.BcryptCost)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "update user: hash password", err)
			return
		}
		s := string(hash)
		upd.PasswordHash = &s
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Update(ctx, uid, upd)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		h.ErrLog.NotFound(w, r, "User not found.")
		return
	case errors.Is(err, userstore.ErrDuplicateEmail):
		h.ErrLog.BadRequest(w, r, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update user", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventUserUpdated, id.ID, &u.ID, nil)
	jsonutil.OK(w, publicUser(*u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/users/{userId} (admin)                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// Delete removes the user and detaches them from tasks, events and message
// statuses.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}
	if uid == id.ID {
		h.ErrLog.BadRequest(w, r, "You cannot delete your own account.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "User not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete user: load", err)
		return
	}

	n, err := h.Users.Delete(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete user", err)
		return
	}
	if n == 0 {
		h.ErrLog.NotFound(w, r, "User not found.")
		return
	}

	h.detach(ctx, u)
	h.AuditLog.Admin(ctx, r, audit.EventUserDeleted, id.ID, &uid, map[string]string{"email": u.Email})
	jsonutil.Message(w, "User deleted successfully")
}

// detach clears references to a deleted user. Failures are logged; the
// account itself is already gone.
func (h *Handler) detach(ctx context.Context, u *models.User) {
	if err := h.Tasks.UnassignUser(ctx, u.ID); err != nil {
		h.Log.Warn("unassign tasks of deleted user", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
	if err := h.Events.RemoveAttendee(ctx, u.ID); err != nil {
		h.Log.Warn("remove deleted user from events", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
	if err := h.Messages.RemoveUser(ctx, u.ID); err != nil {
		h.Log.Warn("remove deleted user's message statuses", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
	if u.AvatarURL != nil && h.Avatars != nil {
		if err := h.Avatars.Remove(avatars.NormalizeURL(*u.AvatarURL)); err != nil {
			h.Log.Warn("remove avatar of deleted user", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
	}
}
