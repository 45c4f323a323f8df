package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gridwatch-lab/gridwatch/internal/core/rollup"
	"github.com/gridwatch-lab/gridwatch/internal/core/storage"
)

// Aggregator downsamples raw readings into hourly aggregate rows.
type Aggregator struct {
	readings   storage.ReadingStore
	aggregates storage.AggregateStore
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(readings storage.ReadingStore, aggregates storage.AggregateStore) *Aggregator {
	return &Aggregator{readings: readings, aggregates: aggregates}
}

// Rollup loads every raw reading, summarizes per (interval bucket, device),
// and upserts the result in a single transaction. Returns the number of
// aggregate rows written. Re-running over the same readings replaces rows
// rather than duplicating them, so a retry after a partial day is safe.
func (a *Aggregator) Rollup(ctx context.Context, interval rollup.Interval) (int, error) {
	readings, err := a.readings.ListReadings(ctx)
	if err != nil {
		return 0, fmt.Errorf("list readings: %w", err)
	}
	if len(readings) == 0 {
		slog.Info("[Aggregator] No readings to roll up")
		return 0, nil
	}

	aggregates, err := rollup.Summarize(readings, interval)
	if err != nil {
		return 0, fmt.Errorf("summarize readings: %w", err)
	}

	if err := a.aggregates.UpsertAggregates(ctx, aggregates); err != nil {
		return 0, fmt.Errorf("upsert aggregates: %w", err)
	}

	slog.Info("[Aggregator] Rollup complete",
		"interval", interval,
		"readings", len(readings),
		"aggregates", len(aggregates),
	)
	return len(aggregates), nil
}
