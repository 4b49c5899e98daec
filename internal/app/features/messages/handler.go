// internal/app/features/messages/handler.go
package messages

import (
	"net/http"

	uierrors "github.com/dalemusser/hearth/internal/app/features/errors"
	messagestore "github.com/dalemusser/hearth/internal/app/store/messages"
	"github.com/dalemusser/hearth/internal/app/system/auditlog"
	"github.com/dalemusser/hearth/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the broadcast message feed.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics

	Messages *messagestore.Store

	// FeedCap is how many messages the feed keeps.
	FeedCap int
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, feedCap int, logger *zap.Logger) *Handler {
	if feedCap <= 0 {
		feedCap = messagestore.DefaultFeedSize
	}
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Metrics:  m,
		Messages: messagestore.New(db),
		FeedCap:  feedCap,
	}
}

func (h *Handler) messageID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.BadRequest(w, r, "Invalid message ID.")
		return primitive.NilObjectID, false
	}
	return oid, true
}
