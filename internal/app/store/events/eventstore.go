package eventstore

import (
	"context"
	"time"

	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

var byDate = bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}, {Key: "_id", Value: 1}}

// Create inserts ev with fresh ID, timestamps and an empty attendee set.
func (s *Store) Create(ctx context.Context, ev models.Event) (models.Event, error) {
	now := time.Now().UTC()
	ev.ID = primitive.NewObjectID()
	ev.Date = ev.Date.UTC()
	if ev.Attendees == nil {
		ev.Attendees = []primitive.ObjectID{}
	}
	ev.CreatedAt = now
	ev.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, ev); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// GetByID loads an event. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var ev models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *Store) find(ctx context.Context, q bson.M) ([]models.Event, error) {
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(byDate))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every event, earliest date first.
func (s *Store) List(ctx context.Context) ([]models.Event, error) {
	return s.find(ctx, bson.M{})
}

// ListAttending returns the events userID has RSVP'd to, earliest first.
func (s *Store) ListAttending(ctx context.Context, userID primitive.ObjectID) ([]models.Event, error) {
	return s.find(ctx, bson.M{"attendees": userID})
}

// HasCreatedSince reports whether any event was created after since. A nil
// since means the caller has never looked, so any event counts.
func (s *Store) HasCreatedSince(ctx context.Context, since *time.Time) (bool, error) {
	q := bson.M{}
	if since != nil {
		q["created_at"] = bson.M{"$gt": since.UTC()}
	}
	n, err := s.c.CountDocuments(ctx, q, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update is a partial patch. Nil fields are unchanged.
type Update struct {
	Name        *string
	Description *string
	Date        *time.Time
	Time        *string
	Location    *string
}

// Update applies upd and returns the event. Returns mongo.ErrNoDocuments if absent.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Event, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Date != nil {
		set["date"] = upd.Date.UTC()
	}
	if upd.Time != nil {
		set["time"] = *upd.Time
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}

	var ev models.Event
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Delete removes an event. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ToggleRSVP adds userID to the attendees if absent, or removes them if
// present, in a single pipeline update. It returns the updated event and
// whether the user is now attending. Returns mongo.ErrNoDocuments if the
// event does not exist.
func (s *Store) ToggleRSVP(ctx context.Context, id, userID primitive.ObjectID) (*models.Event, bool, error) {
	attendees := bson.M{"$ifNull": bson.A{"$attendees", bson.A{}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attendees": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{userID, attendees}},
				bson.M{"$filter": bson.M{
					"input": attendees,
					"cond":  bson.M{"$ne": bson.A{"$$this", userID}},
				}},
				bson.M{"$concatArrays": bson.A{attendees, bson.A{userID}}},
			}},
			"updated_at": time.Now().UTC(),
		}}},
	}

	var ev models.Event
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&ev); err != nil {
		return nil, false, err
	}
	return &ev, ev.HasAttendee(userID), nil
}

// RemoveAttendee drops userID from every event.
func (s *Store) RemoveAttendee(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"attendees": userID},
		bson.M{"$pull": bson.M{"attendees": userID}})
	return err
}
