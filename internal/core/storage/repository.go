package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a lookup matches nothing. It is a
// distinguishable empty result, not a failure; callers check it with
// errors.Is and decide whether absence is acceptable.
var ErrNotFound = errors.New("record not found")

// ReadingStore is the raw-telemetry side of the store, consumed by the
// rollup pipeline. Readings are written by the ingestion path (external to
// this service) and only ever deleted through DeleteReadingsBefore.
type ReadingStore interface {
	// ListReadings returns every raw reading, ordered by timestamp.
	ListReadings(ctx context.Context) ([]v1.Reading, error)

	// DeleteReadingsBefore removes readings strictly older than cutoff and
	// returns the number of rows deleted.
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeviceEnergy is one per-device maximum-energy row for a day or month
// period, feeding the usage summary.
type DeviceEnergy struct {
	DeviceName  string
	PeriodStart time.Time
	MaxEnergy   decimal.Decimal
}

// AggregateStore persists and serves hourly aggregate rows.
type AggregateStore interface {
	// UpsertAggregates writes all rows in one transaction, keyed on
	// (hour_bucket, device_name). Re-running with the same rows replaces the
	// previous values instead of inserting duplicates.
	UpsertAggregates(ctx context.Context, aggregates []v1.HourlyAggregate) error

	// LatestHourBucket returns the newest hour_bucket across all rows, the
	// retention cutoff. Returns ErrNotFound when no aggregates exist.
	LatestHourBucket(ctx context.Context) (time.Time, error)

	// ListAggregates returns all hourly rows ordered by bucket then device.
	ListAggregates(ctx context.Context) ([]v1.HourlyAggregate, error)

	// ListDeviceNames returns the distinct device names present in the
	// aggregate table.
	ListDeviceNames(ctx context.Context) ([]string, error)

	// DeleteAggregates removes the rows matching the given IDs for one
	// device and returns the number of rows deleted.
	DeleteAggregates(ctx context.Context, ids []string, deviceName string) (int64, error)

	// DailyMaxEnergy returns the per-device maximum energy per calendar day.
	DailyMaxEnergy(ctx context.Context) ([]DeviceEnergy, error)

	// MonthlyMaxEnergy returns the per-device maximum energy per calendar month.
	MonthlyMaxEnergy(ctx context.Context) ([]DeviceEnergy, error)
}

// RunMarkerStore tracks the daily pipeline run marker used by the
// idempotency guard.
type RunMarkerStore interface {
	// LatestRun returns the most recent marker, or ErrNotFound when the
	// pipeline has never run.
	LatestRun(ctx context.Context) (v1.RunMarker, error)

	// RecordRun upserts the marker for the given calendar date.
	RecordRun(ctx context.Context, runDate time.Time) error
}
