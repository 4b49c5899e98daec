package messagestore

import (
	"context"
	"time"

	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultFeedSize is how many messages the feed keeps.
const DefaultFeedSize = 5

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// InsertAndEvictOldest inserts m and then deletes every message beyond the
// newest maxSize. Concurrent inserts each run the eviction, so the feed
// converges to maxSize. Read paths never evict.
func (s *Store) InsertAndEvictOldest(ctx context.Context, m models.Message, maxSize int) (models.Message, error) {
	if maxSize <= 0 {
		maxSize = DefaultFeedSize
	}
	m.ID = primitive.NewObjectID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Statuses == nil {
		m.Statuses = []models.MessageStatus{}
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	if err := s.evictBeyond(ctx, maxSize); err != nil {
		return m, err
	}
	return m, nil
}

func (s *Store) evictBeyond(ctx context.Context, keep int) error {
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"_id": 1})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var stale []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return err
		}
		stale = append(stale, row.ID)
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	_, err = s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": stale}})
	return err
}

// List returns up to limit messages, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]models.Message, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

func (s *Store) findNewest(ctx context.Context, q bson.M) (*models.Message, error) {
	var m models.Message
	if err := s.c.FindOne(ctx, q, options.FindOne().SetSort(newestFirst)).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Latest returns the newest message. Returns mongo.ErrNoDocuments if the
// feed is empty.
func (s *Store) Latest(ctx context.Context) (*models.Message, error) {
	return s.findNewest(ctx, bson.M{})
}

// LatestActiveFor returns the newest active message userID has not
// dismissed. Returns mongo.ErrNoDocuments if there is none.
func (s *Store) LatestActiveFor(ctx context.Context, userID primitive.ObjectID) (*models.Message, error) {
	return s.findNewest(ctx, bson.M{
		"is_active": true,
		"statuses": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"user_id":   userID,
			"is_active": false,
		}}},
	})
}

// MarkViewed records that userID viewed message id. An existing view time
// is kept. Returns mongo.ErrNoDocuments if the message does not exist.
func (s *Store) MarkViewed(ctx context.Context, id, userID primitive.ObjectID) error {
	now := time.Now().UTC()

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "statuses.user_id": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"statuses": models.MessageStatus{UserID: userID, IsActive: true, ViewedAt: &now}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Status already exists; fill in viewed_at if it is still empty.
	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": id, "statuses": bson.M{"$elemMatch": bson.M{"user_id": userID, "viewed_at": nil}}},
		bson.M{"$set": bson.M{"statuses.$.viewed_at": now}},
	)
	if err != nil {
		return err
	}
	return s.exists(ctx, id)
}

// MarkAllViewed marks every stored message viewed by userID.
func (s *Store) MarkAllViewed(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now().UTC()

	_, err := s.c.UpdateMany(ctx,
		bson.M{"statuses.user_id": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"statuses": models.MessageStatus{UserID: userID, IsActive: true, ViewedAt: &now}}},
	)
	if err != nil {
		return err
	}

	_, err = s.c.UpdateMany(ctx,
		bson.M{"statuses": bson.M{"$elemMatch": bson.M{"user_id": userID, "viewed_at": nil}}},
		bson.M{"$set": bson.M{"statuses.$[s].viewed_at": now}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"s.user_id": userID, "s.viewed_at": nil}},
		}),
	)
	return err
}

// Dismiss hides message id from userID's active view. Dismissing also
// counts as viewing. Returns mongo.ErrNoDocuments if the message does not
// exist.
func (s *Store) Dismiss(ctx context.Context, id, userID primitive.ObjectID) error {
	now := time.Now().UTC()

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "statuses.user_id": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"statuses": models.MessageStatus{UserID: userID, IsActive: false, ViewedAt: &now}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = s.c.UpdateOne(ctx,
		bson.M{"_id": id, "statuses.user_id": userID},
		bson.M{"$set": bson.M{"statuses.$.is_active": false}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountUnviewed counts active messages userID has not viewed.
func (s *Store) CountUnviewed(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"is_active": true,
		"statuses": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"user_id":   userID,
			"viewed_at": bson.M{"$ne": nil},
		}}},
	})
}

// Delete removes a message. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RemoveUser drops userID's status from every message.
func (s *Store) RemoveUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"statuses.user_id": userID},
		bson.M{"$pull": bson.M{"statuses": bson.M{"user_id": userID}}})
	return err
}

func (s *Store) exists(ctx context.Context, id primitive.ObjectID) error {
	return s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
}
