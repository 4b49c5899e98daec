// internal/app/features/messages/messages.go
package messages

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/hearth/internal/app/store/audit"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hearth/internal/app/system/inputval"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// List returns the feed, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ms, err := h.Messages.List(ctx, h.FeedCap)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list messages", err)
		return
	}
	out := make([]models.MessageView, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.View(id.ID))
	}
	jsonutil.OK(w, out)
}

type createRequest struct {
	Title    string `json:"title" validate:"required,max=100" label:"Title"`
	Content  string `json:"content" validate:"required,max=2000" label:"Content"`
	IsActive *bool  `json:"isActive" label:"Active"`
}

// Create posts a message. The oldest messages beyond the feed cap are
// removed in the same call.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req createRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "create message: decode body", err, "Invalid request body.")
		return
	}
	req.Title = htmlsanitize.PlainText(req.Title)
	req.Content = htmlsanitize.PlainText(req.Content)
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Messages.InsertAndEvictOldest(ctx, models.Message{
		Title:     req.Title,
		Content:   req.Content,
		IsActive:  active,
		CreatedBy: id.ID,
	}, h.FeedCap)
	if err != nil && m.ID.IsZero() {
		h.ErrLog.LogServerError(w, r, "create message", err)
		return
	}
	if err != nil {
		// The message is stored; the next insert retries the eviction.
		h.Log.Warn("message eviction failed", zap.Error(err), zap.String("message_id", m.ID.Hex()))
	}

	h.Metrics.MessagePosted()
	h.AuditLog.Admin(ctx, r, audit.EventMessagePosted, id.ID, nil, map[string]string{"message_id": m.ID.Hex()})
	jsonutil.Created(w, m.View(id.ID))
}

// Active returns the newest active message the caller has not dismissed.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Messages.LatestActiveFor(ctx, id.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "No active message.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "active message", err)
		return
	}
	jsonutil.OK(w, m.View(id.ID))
}

// Recent returns the newest message and marks it viewed for the caller.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Messages.Latest(ctx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "No messages.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "recent message", err)
		return
	}

	v := m.View(id.ID)
	if !v.IsViewed {
		err := h.Messages.MarkViewed(ctx, m.ID, id.ID)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			// Evicted between the read and the mark.
		case err != nil:
			h.ErrLog.LogServerError(w, r, "mark message viewed", err)
			return
		default:
			now := time.Now().UTC()
			v.IsViewed = true
			v.ViewedAt = &now
		}
	}
	jsonutil.OK(w, v)
}

type unviewedResponse struct {
	HasUnviewed bool  `json:"hasUnviewed"`
	Count       int64 `json:"count"`
}

// Unviewed reports whether the caller has active messages they have not
// seen.
func (h *Handler) Unviewed(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Messages.CountUnviewed(ctx, id.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count unviewed messages", err)
		return
	}
	jsonutil.OK(w, unviewedResponse{HasUnviewed: n > 0, Count: n})
}

func (h *Handler) MarkAllViewed(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Messages.MarkAllViewed(ctx, id.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "mark messages viewed", err)
		return
	}
	jsonutil.Message(w, "Messages marked as viewed")
}

// Dismiss hides a message from the caller's active view.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	mid, ok := h.messageID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Messages.Dismiss(ctx, mid, id.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "Message not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dismiss message", err)
		return
	}
	jsonutil.Message(w, "Message dismissed")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	mid, ok := h.messageID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Messages.Delete(ctx, mid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete message", err)
		return
	}
	if n == 0 {
		h.ErrLog.NotFound(w, r, "Message not found.")
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventMessageDeleted, id.ID, nil, map[string]string{"message_id": mid.Hex()})
	jsonutil.Message(w, "Message deleted successfully")
}
