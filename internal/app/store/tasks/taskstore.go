package taskstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/hearth/internal/app/system/txn"
	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyCompleted is returned when completing a completed task.
	ErrAlreadyCompleted = errors.New("task is already completed")
	// ErrUnassigned is returned when completing a task nobody is assigned to.
	ErrUnassigned = errors.New("task has no assignee to credit")
	// ErrNotCompleted is returned when verifying an open task.
	ErrNotCompleted = errors.New("task is not completed")
	// ErrAlreadyVerified is returned when verifying a verified task.
	ErrAlreadyVerified = errors.New("task is already verified")
)

// Awarder credits points to a user's balance.
type Awarder interface {
	AddBalance(ctx context.Context, userID primitive.ObjectID, delta int64) error
}

type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	log *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection("tasks"), log: logger}
}

// Create inserts t with fresh ID and timestamps.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.IsCompleted, t.CompletedAt, t.CompletedBy = false, nil, nil
	t.IsVerified, t.VerifiedAt, t.VerifiedBy = false, nil, nil
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// GetByID loads a task. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListFilter narrows List. The zero value lists every task.
type ListFilter struct {
	AssignedTo *primitive.ObjectID
	OpenOnly   bool
}

// List returns tasks ordered by priority, then due date.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Task, error) {
	q := bson.M{}
	if f.AssignedTo != nil {
		q["assigned_to"] = *f.AssignedTo
	}
	if f.OpenOnly {
		q["is_completed"] = false
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "priority", Value: 1},
		{Key: "due_date", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update is a partial patch. Nil fields are unchanged; Unassign clears the
// assignee and wins over AssignedTo.
type Update struct {
	Name        *string
	Description *string
	DueDate     *time.Time
	Points      *int64
	Priority    *int
	AssignedTo  *primitive.ObjectID
	Unassign    bool
}

// Update applies upd and returns the task. Returns mongo.ErrNoDocuments if absent.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.DueDate != nil {
		set["due_date"] = upd.DueDate.UTC()
	}
	if upd.Points != nil {
		set["points"] = *upd.Points
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	update := bson.M{"$set": set}
	switch {
	case upd.Unassign:
		update["$unset"] = bson.M{"assigned_to": ""}
	case upd.AssignedTo != nil:
		set["assigned_to"] = *upd.AssignedTo
	}

	var t models.Task
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a task. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Complete marks the task completed by `by` and credits its points to the
// assignee. The completion is a conditional update on is_completed=false,
// so concurrent calls award at most once; the award joins it in a
// transaction when the deployment supports one.
func (s *Store) Complete(ctx context.Context, id, by primitive.ObjectID, award Awarder) (*models.Task, error) {
	var done *models.Task
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		t, err := s.markCompleted(ctx, id, by)
		if err != nil {
			return err
		}
		if t.Points != 0 {
			if err := award.AddBalance(ctx, *t.AssignedTo, t.Points); err != nil {
				return err
			}
		}
		done = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

func (s *Store) markCompleted(ctx context.Context, id, by primitive.ObjectID) (*models.Task, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":          id,
		"is_completed": false,
		"assigned_to":  bson.M{"$type": "objectId"},
	}
	update := bson.M{"$set": bson.M{
		"is_completed": true,
		"completed_at": now,
		"completed_by": by,
		"updated_at":   now,
	}}

	var t models.Task
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Explain the miss.
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.IsCompleted {
		return nil, ErrAlreadyCompleted
	}
	return nil, ErrUnassigned
}

// Verify records an admin's acknowledgement of a completed task. Balances
// are not touched.
func (s *Store) Verify(ctx context.Context, id, by primitive.ObjectID) (*models.Task, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "is_completed": true, "is_verified": false}
	update := bson.M{"$set": bson.M{
		"is_verified": true,
		"verified_at": now,
		"verified_by": by,
		"updated_at":  now,
	}}

	var t models.Task
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cur.IsCompleted {
		return nil, ErrNotCompleted
	}
	return nil, ErrAlreadyVerified
}

// Reorder sets each listed task's priority to its position in ids. It
// returns how many tasks matched.
func (s *Store) Reorder(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(ids))
	for i, id := range ids {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"priority": i, "updated_at": now}}))
	}
	res, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// UnassignUser clears userID from every task assigned to them.
func (s *Store) UnassignUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"assigned_to": userID},
		bson.M{
			"$unset": bson.M{"assigned_to": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	return err
}
