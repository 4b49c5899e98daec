package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/hearth/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "correct-horse-battery"

var testPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert %s fixture: %v", coll, err)
	}
}

// CreateUser inserts a user with TestPassword and the given balance.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string, balance int64) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:             primitive.NewObjectID(),
		Name:           name,
		NameCI:         text.Fold(name),
		Email:          email,
		Phone:          "5550100",
		PasswordHash:   testPasswordHash,
		AccountBalance: balance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin inserts an admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, name, email, 0)
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"is_admin": true}}); err != nil {
		f.t.Fatalf("promote admin fixture: %v", err)
	}
	u.IsAdmin = true
	return u
}

// CreateTask inserts an open task. assignee may be nil.
func (f *Fixtures) CreateTask(ctx context.Context, name string, points int64, assignee *primitive.ObjectID, createdBy primitive.ObjectID) models.Task {
	f.t.Helper()
	now := time.Now().UTC()
	task := models.Task{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: name + " description",
		DueDate:     now.Add(48 * time.Hour).Truncate(time.Millisecond),
		Points:      points,
		AssignedTo:  assignee,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "tasks", task)
	return task
}

// CreateEvent inserts an event on date (UTC midnight) created by createdBy.
func (f *Fixtures) CreateEvent(ctx context.Context, name string, date time.Time, createdBy primitive.ObjectID) models.Event {
	f.t.Helper()
	now := time.Now().UTC()
	ev := models.Event{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Date:      time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Time:      "18:00",
		Location:  "Common room",
		Attendees: []primitive.ObjectID{},
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "events", ev)
	return ev
}

// CreateMessage inserts an active message with the given creation time.
func (f *Fixtures) CreateMessage(ctx context.Context, title string, createdAt time.Time, createdBy primitive.ObjectID) models.Message {
	f.t.Helper()
	m := models.Message{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Content:   title + " content",
		IsActive:  true,
		CreatedBy: createdBy,
		CreatedAt: createdAt.UTC().Truncate(time.Millisecond),
		Statuses:  []models.MessageStatus{},
	}
	f.insert(ctx, "messages", m)
	return m
}
