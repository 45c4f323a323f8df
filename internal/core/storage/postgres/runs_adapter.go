package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/gridwatch-lab/gridwatch/internal/core/storage"
)

// RunMarkerAdapter implements storage.RunMarkerStore for PostgreSQL.
type RunMarkerAdapter struct {
	db *sql.DB
}

// NewRunMarkerAdapter creates a RunMarkerAdapter sharing the given pool.
func NewRunMarkerAdapter(db *sql.DB) *RunMarkerAdapter {
	return &RunMarkerAdapter{db: db}
}

// LatestRun returns the most recent run marker.
func (a *RunMarkerAdapter) LatestRun(ctx context.Context) (v1.RunMarker, error) {
	var marker v1.RunMarker
	err := a.db.QueryRowContext(ctx, queryLatestRunMarker).Scan(&marker.RunDate, &marker.RecordedAt)
	if err == sql.ErrNoRows {
		return v1.RunMarker{}, storage.ErrNotFound
	}
	if err != nil {
		return v1.RunMarker{}, fmt.Errorf("query latest run marker: %w", err)
	}
	return marker, nil
}

// RecordRun upserts the marker for the given calendar date.
func (a *RunMarkerAdapter) RecordRun(ctx context.Context, runDate time.Time) error {
	if _, err := a.db.ExecContext(ctx, queryRecordRunMarker, runDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("record run marker: %w", err)
	}
	return nil
}
