// internal/app/features/users/leaderboard.go
package users

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/hearth/internal/app/store/audit"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/leaderboard"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
)

const (
	defaultSnapshotLimit = 12
	maxSnapshotLimit     = 52
)

// queryLimit reads ?limit. ok is false (and 400 written) when the value is
// not a non-negative integer.
func (h *Handler) queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.ErrLog.BadRequest(w, r, "limit must be a non-negative integer.")
		return 0, false
	}
	return n, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/users/leaderboard?limit=N                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// Leaderboard ranks users by balance, highest first. limit defaults to the
// configured size, is capped at leaderboard.MaxLimit, and 0 returns everyone.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	limit, ok := h.queryLimit(w, r, h.LeaderboardSize)
	if !ok {
		return
	}
	limit = leaderboard.ClampLimit(limit)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ranked, err := h.Users.Leaderboard(ctx, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "leaderboard", err)
		return
	}
	jsonutil.OK(w, leaderboard.Rank(ranked))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/users/leaderboard/snapshots                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	limit, ok := h.queryLimit(w, r, defaultSnapshotLimit)
	if !ok {
		return
	}
	if limit == 0 || limit > maxSnapshotLimit {
		limit = maxSnapshotLimit
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	snaps, err := h.Snapshots.Recent(ctx, int64(limit))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list leaderboard snapshots", err)
		return
	}
	jsonutil.OK(w, snaps)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/users/leaderboard/snapshots (admin)                               |
*─────────────────────────────────────────────────────────────────────────────*/

// TakeSnapshot records the full current ranking as this week's snapshot,
// replacing an earlier one from the same week.
func (h *Handler) TakeSnapshot(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	snap, err := h.Snapshotter.Take(ctx, time.Now())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "take leaderboard snapshot", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventLeaderboardSnapshot, id.ID, nil, map[string]string{
		"week_start": snap.WeekStart.Format(time.DateOnly),
		"entries":    strconv.Itoa(len(snap.Entries)),
	})
	jsonutil.OK(w, snap)
}
