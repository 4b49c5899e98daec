// internal/app/features/users/handler.go
package users

import (
	"net/http"

	uierrors "github.com/dalemusser/hearth/internal/app/features/errors"
	eventstore "github.com/dalemusser/hearth/internal/app/store/events"
	leaderboardstore "github.com/dalemusser/hearth/internal/app/store/leaderboards"
	messagestore "github.com/dalemusser/hearth/internal/app/store/messages"
	taskstore "github.com/dalemusser/hearth/internal/app/store/tasks"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/auditlog"
	"github.com/dalemusser/hearth/internal/app/system/avatars"
	"github.com/dalemusser/hearth/internal/app/system/leaderboard"
	"github.com/dalemusser/hearth/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler serves /api/users: account administration, the caller's own
// profile, and the leaderboard.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger

	Users       *userstore.Store
	Tasks       *taskstore.Store
	Events      *eventstore.Store
	Messages    *messagestore.Store
	Snapshots   *leaderboardstore.Store
	Snapshotter *leaderboard.Snapshotter
	Avatars     *avatars.Store

	BcryptCost      int
	LeaderboardSize int
}

func NewHandler(
	db *mongo.Database,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	avatarStore *avatars.Store,
	bcryptCost int,
	leaderboardSize int,
	logger *zap.Logger,
) *Handler {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if leaderboardSize <= 0 {
		leaderboardSize = leaderboard.DefaultLimit
	}
	return &Handler{
		DB:              db,
		Log:             logger,
		ErrLog:          errLog,
		AuditLog:        audit,
		Users:           userstore.New(db),
		Tasks:           taskstore.New(db, logger),
		Events:          eventstore.New(db),
		Messages:        messagestore.New(db),
		Snapshots:       leaderboardstore.New(db),
		Snapshotter:     leaderboard.NewSnapshotter(db),
		Avatars:         avatarStore,
		BcryptCost:      bcryptCost,
		LeaderboardSize: leaderboardSize,
	}
}

func publicUser(u models.User) models.PublicUser {
	p := u.Public()
	p.AvatarURL = avatars.NormalizePtr(p.AvatarURL)
	return p
}

// userID parses the {userId} URL parameter, writing 400 when malformed.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		h.ErrLog.BadRequest(w, r, "Invalid user ID.")
		return primitive.NilObjectID, false
	}
	return oid, true
}
