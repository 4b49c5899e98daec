package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/hearth/internal/domain/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSnapshotter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSnapshotter) Take(_ context.Context, now time.Time) (*models.LeaderboardSnapshot, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &models.LeaderboardSnapshot{WeekStart: models.WeekStart(now)}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestLeaderboardSnapshot_RunsImmediatelyAndOnTick(t *testing.T) {
	fake := &fakeSnapshotter{}
	w := NewLeaderboardSnapshot(fake, zap.NewNop(), 10*time.Millisecond)
	w.Start()
	waitFor(t, func() bool { return fake.calls.Load() >= 3 })
	w.Stop()

	after := fake.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if fake.calls.Load() != after {
		t.Error("worker kept running after Stop")
	}
	w.Stop()
}

func TestLeaderboardSnapshot_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	fake := &fakeSnapshotter{err: errors.New("db down")}
	w := NewLeaderboardSnapshot(fake, zap.New(core), time.Hour)
	w.Start()
	waitFor(t, func() bool { return logs.FilterMessage("failed to take leaderboard snapshot").Len() > 0 })
	w.Stop()
}
