package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/gridwatch-lab/gridwatch/internal/core/storage"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// AggregateAdapter implements storage.AggregateStore for PostgreSQL.
// UpsertAggregates runs in a single transaction — either the whole rollup
// commits or none of it does, which is what makes a failed run safely
// retryable without partial hours.
type AggregateAdapter struct {
	db *sql.DB
}

// NewAggregateAdapter creates an AggregateAdapter sharing the given pool.
func NewAggregateAdapter(db *sql.DB) *AggregateAdapter {
	return &AggregateAdapter{db: db}
}

// UpsertAggregates writes all aggregate rows in one transaction, keyed on
// (hour_bucket, device_name).
func (a *AggregateAdapter) UpsertAggregates(ctx context.Context, aggregates []v1.HourlyAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("aggregate upsert: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, queryUpsertHourlyAggregate)
	if err != nil {
		return fmt.Errorf("aggregate upsert: prepare: %w", err)
	}
	defer stmt.Close()

	for _, agg := range aggregates {
		if _, err := stmt.ExecContext(ctx,
			agg.ID,
			agg.HourBucket,
			agg.DeviceName,
			agg.AvgVoltage,
			agg.AvgCurrent,
			agg.AvgActivePower,
			agg.MaxEnergy,
			agg.AvgFrequency,
			agg.AvgPowerFactor,
		); err != nil {
			return fmt.Errorf("aggregate upsert: %s/%s: %w",
				agg.HourBucket.Format(time.RFC3339), agg.DeviceName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("aggregate upsert: commit: %w", err)
	}

	slog.Info("[Postgres] Upserted hourly aggregates", "rows", len(aggregates))
	return nil
}

// LatestHourBucket returns the newest hour_bucket across all aggregate rows.
// MAX over an empty table yields SQL NULL, which maps to storage.ErrNotFound.
func (a *AggregateAdapter) LatestHourBucket(ctx context.Context) (time.Time, error) {
	var latest sql.NullTime
	if err := a.db.QueryRowContext(ctx, queryLatestHourBucket).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query latest hour bucket: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, storage.ErrNotFound
	}
	return latest.Time, nil
}

// ListAggregates fetches all hourly rows ordered by bucket then device.
func (a *AggregateAdapter) ListAggregates(ctx context.Context) ([]v1.HourlyAggregate, error) {
	rows, err := a.db.QueryContext(ctx, queryListHourlyAggregates)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []v1.HourlyAggregate
	for rows.Next() {
		agg, err := scanAggregateRow(rows)
		if err != nil {
			return nil, err
		}
		aggregates = append(aggregates, agg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregates: %w", err)
	}

	return aggregates, nil
}

// ListDeviceNames returns the distinct device names present in the table.
func (a *AggregateAdapter) ListDeviceNames(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, queryListDeviceNames)
	if err != nil {
		return nil, fmt.Errorf("failed to query device names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan device name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device names: %w", err)
	}

	return names, nil
}

// DeleteAggregates removes the rows matching ids for one device.
func (a *AggregateAdapter) DeleteAggregates(ctx context.Context, ids []string, deviceName string) (int64, error) {
	result, err := a.db.ExecContext(ctx, queryDeleteHourlyAggregates, pq.Array(ids), deviceName)
	if err != nil {
		return 0, fmt.Errorf("failed to delete aggregates for %q: %w", deviceName, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted aggregates: %w", err)
	}
	return deleted, nil
}

// DailyMaxEnergy returns the per-device maximum energy per calendar day.
func (a *AggregateAdapter) DailyMaxEnergy(ctx context.Context) ([]storage.DeviceEnergy, error) {
	return a.queryDeviceEnergy(ctx, queryDailyMaxEnergy)
}

// MonthlyMaxEnergy returns the per-device maximum energy per calendar month.
func (a *AggregateAdapter) MonthlyMaxEnergy(ctx context.Context) ([]storage.DeviceEnergy, error) {
	return a.queryDeviceEnergy(ctx, queryMonthlyMaxEnergy)
}

func (a *AggregateAdapter) queryDeviceEnergy(ctx context.Context, query string) ([]storage.DeviceEnergy, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query device energy: %w", err)
	}
	defer rows.Close()

	var results []storage.DeviceEnergy
	for rows.Next() {
		var (
			entry    storage.DeviceEnergy
			valueStr string
		)
		if err := rows.Scan(&entry.DeviceName, &entry.PeriodStart, &valueStr); err != nil {
			return nil, fmt.Errorf("failed to scan device energy row: %w", err)
		}

		value, err := decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("parse energy value %q: %w", valueStr, err)
		}
		entry.MaxEnergy = value

		results = append(results, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device energy rows: %w", err)
	}

	return results, nil
}
