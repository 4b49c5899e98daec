// Package leaderboard ranks users by balance and records weekly snapshots.
package leaderboard

import (
	"context"
	"time"

	leaderboardstore "github.com/dalemusser/hearth/internal/app/store/leaderboards"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/avatars"
	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ClampLimit resolves a requested size. Negative means the default, 0 means
// everyone, and anything above MaxLimit is capped.
func ClampLimit(n int) int {
	switch {
	case n < 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// Rank turns users, already sorted by balance, into ranked entries with
// normalized avatar URLs. Ranks are 1..n in input order.
func Rank(users []models.User) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		e := models.LeaderboardEntry{
			Rank:           i + 1,
			UserID:         u.ID,
			Name:           u.Name,
			AccountBalance: u.AccountBalance,
		}
		if u.AvatarURL != nil {
			e.AvatarURL = avatars.NormalizeURL(*u.AvatarURL)
		}
		out = append(out, e)
	}
	return out
}

// Snapshotter captures the full live ranking into the weekly snapshot store.
type Snapshotter struct {
	users     *userstore.Store
	snapshots *leaderboardstore.Store
}

func NewSnapshotter(db *mongo.Database) *Snapshotter {
	return &Snapshotter{
		users:     userstore.New(db),
		snapshots: leaderboardstore.New(db),
	}
}

// Take records the current ranking for the week containing now.
func (s *Snapshotter) Take(ctx context.Context, now time.Time) (*models.LeaderboardSnapshot, error) {
	users, err := s.users.Leaderboard(ctx, 0)
	if err != nil {
		return nil, err
	}
	return s.snapshots.Upsert(ctx, now, Rank(users))
}
