package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gridwatch-lab/gridwatch/internal/core/storage"
)

// IdempotencyGuard enforces at-most-once pipeline execution per calendar day.
// The marker is recorded before the stages run, so a failed run still counts
// as that day's attempt and must be re-triggered explicitly with force.
type IdempotencyGuard struct {
	runs storage.RunMarkerStore

	// mu serializes Acquire so two in-process triggers (cron tick plus a
	// manual run) cannot both pass the check before either records.
	mu sync.Mutex
}

// NewIdempotencyGuard creates a guard backed by the given marker store.
func NewIdempotencyGuard(runs storage.RunMarkerStore) *IdempotencyGuard {
	return &IdempotencyGuard{runs: runs}
}

// Acquire checks whether the pipeline already ran for now's calendar day and,
// if not, records the marker. Returns false when the day is already taken.
// force skips the check but still records, refreshing the marker timestamp.
func (g *IdempotencyGuard) Acquire(ctx context.Context, now time.Time, force bool) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	runDate := truncateToDay(now)

	if !force {
		marker, err := g.runs.LatestRun(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// First run ever.
		case err != nil:
			return false, fmt.Errorf("read run marker: %w", err)
		case sameDate(marker.RunDate, runDate):
			slog.Info("[Guard] Pipeline already ran today, skipping",
				"run_date", runDate.Format("2006-01-02"),
				"recorded_at", marker.RecordedAt,
			)
			return false, nil
		}
	}

	if err := g.runs.RecordRun(ctx, runDate); err != nil {
		return false, fmt.Errorf("record run marker: %w", err)
	}
	return true, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
