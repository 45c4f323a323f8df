package rollup

import (
	"fmt"
	"time"
)

// Interval is the downsampling granularity for a pipeline rollup run.
// The pipeline only schedules hourly rollups today; day and week exist so a
// coarser rollup can be added as a parameter, not as a new code path.
type Interval string

const (
	IntervalHour Interval = "hour"
	IntervalDay  Interval = "day"
	IntervalWeek Interval = "week"
)

// ParseInterval validates an interval label.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalHour, IntervalDay, IntervalWeek:
		return Interval(s), nil
	}
	return "", fmt.Errorf("unsupported rollup interval %q (must be hour, day, or week)", s)
}

// Truncate clamps a timestamp to the start of its interval bucket, in UTC.
// Example: Truncate(01:45:12, hour) → 01:00:00.
func (i Interval) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch i {
	case IntervalHour:
		return t.Truncate(time.Hour)
	case IntervalDay:
		year, month, day := t.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	case IntervalWeek:
		year, month, day := t.Date()
		midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		// ISO week starts on Monday.
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	}
	return t
}

// Valid reports whether the interval is a recognized label.
func (i Interval) Valid() bool {
	_, err := ParseInterval(string(i))
	return err == nil
}
