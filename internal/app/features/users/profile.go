// internal/app/features/users/profile.go
package users

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/avatars"
	"github.com/dalemusser/hearth/internal/app/system/inputval"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/normalize"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/users/me                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// profileRequest is a partial patch of the caller's own account. Changing
// the password requires the current one.
type profileRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=100" label:"Name"`
	Phone           *string `json:"phone" validate:"omitempty,max=32" label:"Phone"`
	Password        *string `json:"password" validate:"omitempty,min=6,max=72" label:"Password"`
	CurrentPassword *string `json:"currentPassword" label:"Current password"`
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req profileRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "update profile: decode body", err, "Invalid request body.")
		return
	}
	if req.Name != nil {
		n := normalize.Name(*req.Name)
		if n == "" {
			h.ErrLog.BadRequest(w, r, "Name is required.")
			return
		}
		req.Name = &n
	}
	if req.Phone != nil {
		p := normalize.Phone(*req.Phone)
		if p == "" {
			h.ErrLog.BadRequest(w, r, "Phone is required.")
			return
		}
		req.Phone = &p
	}
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	upd := userstore.Update{Name: req.Name, Phone: req.Phone}
	changingPassword := req.Password != nil && *req.Password != ""
	if changingPassword {
		cur, err := h.Users.GetByID(ctx, id.ID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.ErrLog.Unauthorized(w, r, "authentication required")
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, "update profile: load user", err)
			return
		}
		if req.CurrentPassword == nil ||
			bcrypt.CompareHashAndPassword([]byte(cur.PasswordHash), []byte(*req.CurrentPassword)) != nil {
			h.ErrLog.BadRequest(w, r, "Current password is incorrect.")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), h.BcryptCost)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "update profile: hash password", err)
			return
		}
		s := string(hash)
		upd.PasswordHash = &s
	}

	u, err := h.Users.Update(ctx, id.ID, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Unauthorized(w, r, "authentication required")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update profile", err)
		return
	}

	if changingPassword {
		h.AuditLog.PasswordChanged(ctx, r, id.ID)
	}
	jsonutil.OK(w, publicUser(*u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/users/me/avatar                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// multipartOverhead is allowed on top of the image for form boundaries and
// headers.
const multipartOverhead = 64 << 10

type avatarResponse struct {
	Message   string `json:"message"`
	AvatarURL string `json:"avatarUrl"`
}

// UploadAvatar stores the multipart "avatar" file and points the caller's
// profile at it. The previous upload is removed.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if h.Avatars == nil {
		h.ErrLog.LogServerError(w, r, "upload avatar", errors.New("avatar storage is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Avatars.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(h.Avatars.MaxBytes()); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.ErrLog.BadRequest(w, r, avatars.ErrTooLarge.Error())
			return
		}
		h.ErrLog.LogBadRequest(w, r, "upload avatar: parse form", err, "Expected a multipart form with an avatar file.")
		return
	}
	file, _, err := r.FormFile("avatar")
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "upload avatar: form file", err, "Avatar file is required.")
		return
	}
	defer file.Close()

	url, err := h.Avatars.Save(file)
	switch {
	case errors.Is(err, avatars.ErrTooLarge), errors.Is(err, avatars.ErrUnsupportedType), errors.Is(err, avatars.ErrEmpty):
		h.ErrLog.BadRequest(w, r, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "upload avatar: save", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	prev, err := h.Users.SetAvatar(ctx, id.ID, url)
	if err != nil {
		_ = h.Avatars.Remove(url)
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.ErrLog.Unauthorized(w, r, "authentication required")
			return
		}
		h.ErrLog.LogServerError(w, r, "upload avatar: set avatar", err)
		return
	}
	if prev != nil && *prev != url {
		if err := h.Avatars.Remove(avatars.NormalizeURL(*prev)); err != nil {
			h.Log.Warn("remove previous avatar", zap.Error(err), zap.String("user_id", id.ID.Hex()))
		}
	}

	jsonutil.OK(w, avatarResponse{Message: "Avatar updated", AvatarURL: url})
}
