package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridwatch-lab/gridwatch/internal/core/rollup"
	"github.com/gridwatch-lab/gridwatch/internal/core/storage"
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid hourly query")

// Service serves read queries over the hourly aggregate table: filtered hourly
// rows, on-demand day/month buckets, device listings, usage summaries, and
// row deletion. It never touches the raw readings table; that side belongs to
// the rollup pipeline.
type Service struct {
	aggregates storage.AggregateStore
	loc        *time.Location
	nowFn      func() time.Time
}

// NewService creates a query service. loc controls which calendar day "today"
// means in the usage summary; nil means UTC.
func NewService(aggregates storage.AggregateStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		aggregates: aggregates,
		loc:        loc,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// QueryHourly loads hourly rows, applies the request filter, and when a
// period is set folds the survivors into day or month buckets. Validation
// happens before the store is touched.
func (s *Service) QueryHourly(ctx context.Context, q HourlyQuery) (*HourlyResult, error) {
	var period rollup.Period
	if q.Period != "" {
		parsed, err := rollup.ParsePeriod(q.Period)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, err)
		}
		period = parsed
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidQuery)
	}

	rows, err := s.aggregates.ListAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}

	filter := rollup.Filter{
		Device: q.Device,
		Start:  q.Start,
		End:    q.End,
		Date:   q.Date,
	}
	filtered := filter.Apply(rows)

	if period == "" {
		return &HourlyResult{Rows: filtered, Count: len(filtered)}, nil
	}

	buckets, err := rollup.BucketByPeriod(filtered, period)
	if err != nil {
		return nil, fmt.Errorf("bucket by %s: %w", period, err)
	}
	return &HourlyResult{Period: string(period), Buckets: buckets, Count: len(buckets)}, nil
}

// ListDevices returns the distinct device names present in the aggregates.
func (s *Service) ListDevices(ctx context.Context) ([]string, error) {
	names, err := s.aggregates.ListDeviceNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list device names: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// DeleteHourly removes the named rows per device. Every batch is validated
// before any deletion runs, so a malformed batch cannot leave a partial
// delete behind. Returns the total number of rows removed.
func (s *Service) DeleteHourly(ctx context.Context, batches []DeleteBatch) (int64, error) {
	if len(batches) == 0 {
		return 0, fmt.Errorf("%w: empty delete request", ErrInvalidQuery)
	}
	for i, b := range batches {
		if len(b.IDs) == 0 {
			return 0, fmt.Errorf("%w: batch %d has no ids", ErrInvalidQuery, i)
		}
		if b.DeviceName == "" {
			return 0, fmt.Errorf("%w: batch %d has no device_name", ErrInvalidQuery, i)
		}
	}

	var total int64
	for _, b := range batches {
		deleted, err := s.aggregates.DeleteAggregates(ctx, b.IDs, b.DeviceName)
		if err != nil {
			return total, fmt.Errorf("delete aggregates for %s: %w", b.DeviceName, err)
		}
		total += deleted
	}
	return total, nil
}
