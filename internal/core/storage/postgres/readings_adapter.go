package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
)

// ReadingAdapter implements storage.ReadingStore for PostgreSQL.
// Statements are prepared once at construction; the rollup pipeline runs the
// same two statements every day.
type ReadingAdapter struct {
	db               *sql.DB
	stmtList         *sql.Stmt
	stmtDeleteBefore *sql.Stmt
}

// NewReadingAdapter prepares the reading statements on the given pool.
func NewReadingAdapter(db *sql.DB) (*ReadingAdapter, error) {
	stmtList, err := db.Prepare(queryListReadings)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare listReadings statement: %w", err)
	}

	stmtDelete, err := db.Prepare(queryDeleteReadingsBefore)
	if err != nil {
		stmtList.Close()
		return nil, fmt.Errorf("failed to prepare deleteReadingsBefore statement: %w", err)
	}

	return &ReadingAdapter{
		db:               db,
		stmtList:         stmtList,
		stmtDeleteBefore: stmtDelete,
	}, nil
}

// ListReadings fetches every raw reading ordered by timestamp.
func (a *ReadingAdapter) ListReadings(ctx context.Context) ([]v1.Reading, error) {
	rows, err := a.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []v1.Reading
	for rows.Next() {
		r, err := scanReadingRow(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating readings: %w", err)
	}

	return readings, nil
}

// DeleteReadingsBefore removes readings strictly older than cutoff.
func (a *ReadingAdapter) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := a.stmtDeleteBefore.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete readings before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted readings: %w", err)
	}

	slog.Debug("[Postgres] Pruned readings", "cutoff", cutoff, "rows_deleted", deleted)
	return deleted, nil
}

// Close releases the prepared statements. The shared pool is closed by the
// owning Adapter, not here.
func (a *ReadingAdapter) Close() error {
	var firstErr error
	if err := a.stmtList.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close listReadings statement: %w", err)
	}
	if err := a.stmtDeleteBefore.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close deleteReadingsBefore statement: %w", err)
	}
	return firstErr
}
