package leaderboardstore

import (
	"context"
	"time"

	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("leaderboard_snapshots")}
}

// Upsert stores entries as the snapshot for the week containing at,
// replacing any earlier snapshot for that week.
func (s *Store) Upsert(ctx context.Context, at time.Time, entries []models.LeaderboardEntry) (*models.LeaderboardSnapshot, error) {
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	now := time.Now().UTC()
	week := models.WeekStart(at)

	var snap models.LeaderboardSnapshot
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"week_start": week},
		bson.M{
			"$set":         bson.M{"entries": entries, "updated_at": now},
			"$setOnInsert": bson.M{"week_start": week, "created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetByWeek returns the snapshot for the week containing at.
// Returns mongo.ErrNoDocuments if none was taken.
func (s *Store) GetByWeek(ctx context.Context, at time.Time) (*models.LeaderboardSnapshot, error) {
	var snap models.LeaderboardSnapshot
	if err := s.c.FindOne(ctx, bson.M{"week_start": models.WeekStart(at)}).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Recent returns up to limit snapshots, newest week first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.LeaderboardSnapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "week_start", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.LeaderboardSnapshot{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
