// internal/app/features/tasks/list.go
package tasks

import (
	"context"
	"errors"
	"net/http"

	taskstore "github.com/dalemusser/hearth/internal/app/store/tasks"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
)

// List returns every task with its assignee's name. ?open=true hides
// completed tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	h.list(w, r, taskstore.ListFilter{OpenOnly: r.URL.Query().Get("open") == "true"})
}

// Mine returns the caller's tasks.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	h.list(w, r, taskstore.ListFilter{
		AssignedTo: &id.ID,
		OpenOnly:   r.URL.Query().Get("open") == "true",
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f taskstore.ListFilter) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ts, err := h.Tasks.List(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list tasks", err)
		return
	}
	out, err := h.views(ctx, ts)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve task assignees", err)
		return
	}
	jsonutil.OK(w, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	tid, ok := h.taskID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tasks.GetByID(ctx, tid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "Task not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "get task", err)
		return
	}
	v, err := h.view(ctx, *t)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve task assignee", err)
		return
	}
	jsonutil.OK(w, v)
}
