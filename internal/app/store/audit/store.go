// internal/app/store/audit/store.go
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the audit collection name.
const Collection = "audit_events"

// Categories group events for the audit_log_* config modes.
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Authentication events.
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventLogout                   = "logout"
	EventRegistered               = "registered"
	EventPasswordChanged          = "password_changed"
)

// Administrative changes.
const (
	EventUserCreated         = "user_created"
	EventUserUpdated         = "user_updated"
	EventUserDeleted         = "user_deleted"
	EventTaskCreated         = "task_created"
	EventTaskUpdated         = "task_updated"
	EventTaskDeleted         = "task_deleted"
	EventTaskVerified        = "task_verified"
	EventTasksReordered      = "tasks_reordered"
	EventEventCreated        = "event_created"
	EventEventUpdated        = "event_updated"
	EventEventDeleted        = "event_deleted"
	EventMessagePosted       = "message_posted"
	EventMessageDeleted      = "message_deleted"
	EventLeaderboardSnapshot = "leaderboard_snapshot"
	EventAdminBootstrapped   = "admin_bootstrapped"
)

// Event is one audit record. UserID is the account the event is about;
// ActorID is whoever caused it (nil for system events).
type Event struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp     time.Time           `bson:"timestamp"`
	Category      string              `bson:"category"`
	EventType     string              `bson:"event_type"`
	UserID        *primitive.ObjectID `bson:"user_id,omitempty"`
	ActorID       *primitive.ObjectID `bson:"actor_id,omitempty"`
	IP            string              `bson:"ip"`
	UserAgent     string              `bson:"user_agent,omitempty"`
	Success       bool                `bson:"success"`
	FailureReason string              `bson:"failure_reason,omitempty"`
	Details       map[string]string   `bson:"details,omitempty"`
}

// QueryFilter narrows Query results. Zero fields match everything.
type QueryFilter struct {
	UserID    *primitive.ObjectID
	Category  string
	EventType string
	Limit     int64 // <= 0 means defaultQueryLimit
}

const defaultQueryLimit = 100

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	for field, v := range map[string]string{"category": f.Category, "event_type": f.EventType} {
		if v != "" {
			q[field] = v
		}
	}
	return q
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Log inserts event, filling in the id and a UTC timestamp when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("audit: insert %s: %w", event.EventType, err)
	}
	return nil
}

// Query returns matching events, newest first.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	cur, err := s.c.Find(ctx, f.query(), options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]Event, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
