package userstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser returns the current identity for userID. A malformed id or a
// missing document is auth.ErrUserNotFound; other errors are returned as is.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) (*auth.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, auth.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var row struct {
		ID      primitive.ObjectID `bson:"_id"`
		Email   string             `bson:"email"`
		IsAdmin bool               `bson:"is_admin"`
	}
	proj := options.FindOne().SetProjection(bson.M{"_id": 1, "email": 1, "is_admin": 1})
	err = f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&row)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, auth.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return &auth.Identity{ID: row.ID, Email: row.Email, IsAdmin: row.IsAdmin}, nil
}
