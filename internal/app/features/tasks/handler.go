// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/hearth/internal/app/features/errors"
	taskstore "github.com/dalemusser/hearth/internal/app/store/tasks"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/auditlog"
	"github.com/dalemusser/hearth/internal/app/system/metrics"
	"github.com/dalemusser/hearth/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics

	Tasks *taskstore.Store
	Users *userstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Metrics:  m,
		Tasks:    taskstore.New(db, logger),
		Users:    userstore.New(db),
	}
}

// taskID parses the {id} URL parameter, writing 400 when malformed.
func (h *Handler) taskID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.BadRequest(w, r, "Invalid task ID.")
		return primitive.NilObjectID, false
	}
	return oid, true
}

// views resolves assignee names for ts. Tasks whose assignee no longer
// exists show as Unassigned.
func (h *Handler) views(ctx context.Context, ts []models.Task) ([]models.TaskView, error) {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, t := range ts {
		if t.AssignedTo != nil && !seen[*t.AssignedTo] {
			seen[*t.AssignedTo] = true
			ids = append(ids, *t.AssignedTo)
		}
	}
	names, err := h.Users.NamesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.TaskView, 0, len(ts))
	for _, t := range ts {
		var name string
		if t.AssignedTo != nil {
			name = names[*t.AssignedTo]
		}
		out = append(out, t.View(name))
	}
	return out, nil
}

func (h *Handler) view(ctx context.Context, t models.Task) (models.TaskView, error) {
	vs, err := h.views(ctx, []models.Task{t})
	if err != nil {
		return models.TaskView{}, err
	}
	return vs[0], nil
}
