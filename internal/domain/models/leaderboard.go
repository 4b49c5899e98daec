// internal/domain/models/leaderboard.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank           int                `bson:"rank" json:"rank"`
	UserID         primitive.ObjectID `bson:"user_id" json:"userId"`
	Name           string             `bson:"name" json:"name"`
	AccountBalance int64              `bson:"account_balance" json:"accountBalance"`
	AvatarURL      string             `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
}

// LeaderboardSnapshot is a persisted weekly ranking. It is written by the
// snapshot operation and never consulted by the live leaderboard.
type LeaderboardSnapshot struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WeekStart time.Time          `bson:"week_start" json:"weekStart"`
	Entries   []LeaderboardEntry `bson:"entries" json:"entries"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// WeekStart returns the Monday 00:00 UTC that begins t's week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}
