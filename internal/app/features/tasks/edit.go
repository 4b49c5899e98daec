// internal/app/features/tasks/edit.go
package tasks

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/hearth/internal/app/store/audit"
	taskstore "github.com/dalemusser/hearth/internal/app/store/tasks"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hearth/internal/app/system/inputval"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// isUnassigned treats an empty assignee and the display sentinel alike.
func isUnassigned(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, models.Unassigned)
}

// assignee resolves a client-supplied user ID, writing 400 when it is
// malformed or unknown.
func (h *Handler) assignee(ctx context.Context, w http.ResponseWriter, r *http.Request, raw string) (*primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		h.ErrLog.BadRequest(w, r, "Assignee must be a valid ID.")
		return nil, false
	}
	if _, err := h.Users.GetByID(ctx, oid); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.ErrLog.BadRequest(w, r, "Assigned user not found.")
			return nil, false
		}
		h.ErrLog.LogServerError(w, r, "task: load assignee", err)
		return nil, false
	}
	return &oid, true
}

func (h *Handler) dueDate(w http.ResponseWriter, r *http.Request, raw string) (time.Time, bool) {
	t, err := inputval.ParseDateTime(raw)
	if err != nil {
		h.ErrLog.BadRequest(w, r, "Due date must be a date like 2025-06-30.")
		return time.Time{}, false
	}
	return t, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/tasks (admin)                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type createRequest struct {
	Name        string `json:"name" validate:"required,max=100" label:"Name"`
	Description string `json:"description" validate:"max=240" label:"Description"`
	DueDate     string `json:"dueDate" validate:"required" label:"Due date"`
	Points      int64  `json:"points" validate:"gte=0" label:"Points"`
	Priority    int    `json:"priority" label:"Priority"`
	AssignedTo  string `json:"assignedTo" label:"Assignee"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req createRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "create task: decode body", err, "Invalid request body.")
		return
	}
	req.Name = htmlsanitize.PlainText(req.Name)
	req.Description = htmlsanitize.PlainText(req.Description)
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}
	due, ok := h.dueDate(w, r, req.DueDate)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	task := models.Task{
		Name:        req.Name,
		Description: req.Description,
		DueDate:     due,
		Points:      req.Points,
		Priority:    req.Priority,
		CreatedBy:   id.ID,
	}
	if !isUnassigned(req.AssignedTo) {
		if task.AssignedTo, ok = h.assignee(ctx, w, r, req.AssignedTo); !ok {
			return
		}
	}

	created, err := h.Tasks.Create(ctx, task)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create task", err)
		return
	}
	v, err := h.view(ctx, created)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve task assignee", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventTaskCreated, id.ID, task.AssignedTo, map[string]string{"task_id": created.ID.Hex()})
	jsonutil.Created(w, v)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/tasks/{id} (admin)                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// updateRequest is a partial patch. An assignedTo of "" or "Unassigned"
// clears the assignee.
type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100" label:"Name"`
	Description *string `json:"description" validate:"omitempty,max=240" label:"Description"`
	DueDate     *string `json:"dueDate" label:"Due date"`
	Points      *int64  `json:"points" validate:"omitempty,gte=0" label:"Points"`
	Priority    *int    `json:"priority" label:"Priority"`
	AssignedTo  *string `json:"assignedTo" label:"Assignee"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	tid, ok := h.taskID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "update task: decode body", err, "Invalid request body.")
		return
	}
	if req.Name != nil {
		n := htmlsanitize.PlainText(*req.Name)
		if n == "" {
			h.ErrLog.BadRequest(w, r, "Name is required.")
			return
		}
		req.Name = &n
	}
	if req.Description != nil {
		d := htmlsanitize.PlainText(*req.Description)
		req.Description = &d
	}
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	upd := taskstore.Update{
		Name:        req.Name,
		Description: req.Description,
		Points:      req.Points,
		Priority:    req.Priority,
	}
	if req.DueDate != nil {
		due, ok := h.dueDate(w, r, *req.DueDate)
		if !ok {
			return
		}
		upd.DueDate = &due
	}
	if req.AssignedTo != nil {
		if isUnassigned(*req.AssignedTo) {
			upd.Unassign = true
		} else if upd.AssignedTo, ok = h.assignee(ctx, w, r, *req.AssignedTo); !ok {
			return
		}
	}

	t, err := h.Tasks.Update(ctx, tid, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "Task not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update task", err)
		return
	}
	v, err := h.view(ctx, *t)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "resolve task assignee", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventTaskUpdated, id.ID, t.AssignedTo, map[string]string{"task_id": t.ID.Hex()})
	jsonutil.OK(w, v)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/tasks/{id} (admin)                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	tid, ok := h.taskID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Tasks.Delete(ctx, tid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete task", err)
		return
	}
	if n == 0 {
		h.ErrLog.NotFound(w, r, "Task not found.")
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventTaskDeleted, id.ID, nil, map[string]string{"task_id": tid.Hex()})
	jsonutil.Message(w, "Task deleted successfully")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/tasks/reorder (admin)                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type reorderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,objectid" label:"Task IDs"`
}

// Reorder sets each task's priority to its index in ids.
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req reorderRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "reorder tasks: decode body", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(req.IDs))
	seen := make(map[primitive.ObjectID]bool, len(req.IDs))
	for _, raw := range req.IDs {
		oid, _ := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
		if seen[oid] {
			h.ErrLog.BadRequest(w, r, "Task IDs must not repeat.")
			return
		}
		seen[oid] = true
		ids = append(ids, oid)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	matched, err := h.Tasks.Reorder(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reorder tasks", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventTasksReordered, id.ID, nil, map[string]string{"count": strconv.Itoa(len(ids))})
	jsonutil.OK(w, map[string]int64{"updated": matched})
}
