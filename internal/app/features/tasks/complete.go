// internal/app/features/tasks/complete.go
package tasks

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/hearth/internal/app/store/audit"
	taskstore "github.com/dalemusser/hearth/internal/app/store/tasks"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/authz"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Complete marks a task done and credits its points to the assignee.
// Only the assignee or an admin may complete it, and only once.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	tid, ok := h.taskID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.Tasks.GetByID(ctx, tid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "Task not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "complete task: load", err)
		return
	}
	if !authz.CanCompleteTask(id, *t) {
		h.ErrLog.Forbidden(w, r, "You can only complete tasks assigned to you.")
		return
	}

	done, err := h.Tasks.Complete(ctx, tid, id.ID, h.Users)
	switch {
	case errors.Is(err, taskstore.ErrAlreadyCompleted):
		h.ErrLog.Conflict(w, r, "Task is already completed.")
		return
	case errors.Is(err, taskstore.ErrUnassigned):
		h.ErrLog.BadRequest(w, r, "Task must be assigned before it can be completed.")
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		h.ErrLog.NotFound(w, r, "Task not found.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "complete task", err)
		return
	}

	h.Metrics.TaskCompleted(done.Points)
	h.Log.Info("task completed",
		zap.String("task_id", done.ID.Hex()),
		zap.String("completed_by", id.ID.Hex()),
		zap.Int64("points", done.Points))

	v, err := h.view(ctx, *done)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve task assignee", err)
		return
	}
	jsonutil.OK(w, v)
}

// Verify records an admin's sign-off on a completed task.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	tid, ok := h.taskID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tasks.Verify(ctx, tid, id.ID)
	switch {
	case errors.Is(err, taskstore.ErrAlreadyVerified):
		h.ErrLog.Conflict(w, r, "Task is already verified.")
		return
	case errors.Is(err, taskstore.ErrNotCompleted):
		h.ErrLog.BadRequest(w, r, "Task must be completed before it can be verified.")
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		h.ErrLog.NotFound(w, r, "Task not found.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "verify task", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventTaskVerified, id.ID, t.AssignedTo, map[string]string{"task_id": t.ID.Hex()})

	v, err := h.view(ctx, *t)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve task assignee", err)
		return
	}
	jsonutil.OK(w, v)
}
