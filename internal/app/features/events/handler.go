// internal/app/features/events/handler.go
package events

import (
	"net/http"

	uierrors "github.com/dalemusser/hearth/internal/app/features/errors"
	eventstore "github.com/dalemusser/hearth/internal/app/store/events"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/auditlog"
	"github.com/dalemusser/hearth/internal/app/system/metrics"
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

	Events *eventstore.Store
	Users  *userstore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Metrics:  m,
		Events:   eventstore.New(db),
		Users:    userstore.New(db),
	}
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.BadRequest(w, r, "Invalid event ID.")
		return primitive.NilObjectID, false
	}
	return oid, true
}
