package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gridwatch-lab/gridwatch/internal/core/storage"
)

// Pruner deletes raw readings already covered by hourly aggregates.
type Pruner struct {
	readings   storage.ReadingStore
	aggregates storage.AggregateStore
}

// NewPruner creates a pruner over the given stores.
func NewPruner(readings storage.ReadingStore, aggregates storage.AggregateStore) *Pruner {
	return &Pruner{readings: readings, aggregates: aggregates}
}

// Prune removes readings strictly older than the newest aggregated hour.
// Readings inside the newest bucket stay: that hour may still be receiving
// data and will be re-summarized on the next run. When no aggregates exist
// nothing is deleted, so raw data is never lost before it has been rolled up.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff, err := p.aggregates.LatestHourBucket(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("[Pruner] No aggregates yet, skipping prune")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("latest hour bucket: %w", err)
	}

	deleted, err := p.readings.DeleteReadingsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete readings before %s: %w", cutoff.Format("2006-01-02T15:04:05Z"), err)
	}

	slog.Info("[Pruner] Prune complete", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}
