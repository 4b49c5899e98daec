// internal/app/system/workers/leaderboardsnapshot.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"github.com/dalemusser/hearth/internal/domain/models"
	"go.uber.org/zap"
)

// Snapshotter records the current leaderboard for the week containing now.
type Snapshotter interface {
	Take(ctx context.Context, now time.Time) (*models.LeaderboardSnapshot, error)
}

// LeaderboardSnapshot is a background worker that periodically refreshes
// the current week's leaderboard snapshot.
type LeaderboardSnapshot struct {
	snap     Snapshotter
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLeaderboardSnapshot creates a snapshot worker that runs every interval.
func NewLeaderboardSnapshot(snap Snapshotter, logger *zap.Logger, interval time.Duration) *LeaderboardSnapshot {
	return &LeaderboardSnapshot{
		snap:     snap,
		log:      logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start takes one snapshot immediately and then begins the loop.
func (w *LeaderboardSnapshot) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("leaderboard snapshot worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *LeaderboardSnapshot) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("leaderboard snapshot worker stopped")
	})
}

func (w *LeaderboardSnapshot) run() {
	defer w.wg.Done()

	w.take()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.take()
		}
	}
}

func (w *LeaderboardSnapshot) take() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	snap, err := w.snap.Take(ctx, w.now())
	if err != nil {
		w.log.Error("failed to take leaderboard snapshot", zap.Error(err))
		return
	}
	w.log.Debug("leaderboard snapshot taken",
		zap.Time("week_start", snap.WeekStart),
		zap.Int("entries", len(snap.Entries)))
}
