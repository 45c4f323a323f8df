package rollup

import (
	"errors"
	"fmt"
	"sort"
	"time"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/shopspring/decimal"
)

// Period is the on-demand re-aggregation granularity for read queries.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ErrInvalidPeriod marks period validation failures. Callers map it to a
// 400-class response; it is returned before any grouping happens.
var ErrInvalidPeriod = errors.New("invalid bucketing period")

// ParsePeriod validates a period query value. The empty string is not a
// period; callers treat it as "no bucketing requested".
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodMonth:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: %q (must be day or month)", ErrInvalidPeriod, s)
}

// Filter narrows a set of hourly rows before bucketing. Zero values mean
// "no constraint". Date matches one calendar day and is mutually additive
// with the Start/End range, mirroring the read API query parameters.
type Filter struct {
	Device string
	Start  time.Time
	End    time.Time
	Date   time.Time
}

// Apply returns the rows that pass every set constraint. Range bounds are
// inclusive on Start's day start and exclusive on the day after End.
func (f Filter) Apply(rows []v1.HourlyAggregate) []v1.HourlyAggregate {
	out := make([]v1.HourlyAggregate, 0, len(rows))
	for _, row := range rows {
		if f.Device != "" && row.DeviceName != f.Device {
			continue
		}
		ts := row.HourBucket.UTC()
		if !f.Start.IsZero() && ts.Before(IntervalDay.Truncate(f.Start)) {
			continue
		}
		if !f.End.IsZero() && !ts.Before(IntervalDay.Truncate(f.End).AddDate(0, 0, 1)) {
			continue
		}
		if !f.Date.IsZero() && !IntervalDay.Truncate(ts).Equal(IntervalDay.Truncate(f.Date)) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Bucket is a derived day or month summary of hourly aggregate rows.
// It is never persisted. Averaged fields are means of the constituent hourly
// averages (all source hours carry equal weight) rounded to two decimals;
// energy is the maximum of the members' maxima.
type Bucket struct {
	Period      Period    `json:"period"`
	BucketStart time.Time `json:"bucket_start"`
	DeviceName  string    `json:"device_name"`

	AvgVoltage     decimal.Decimal `json:"avg_voltage"`
	AvgCurrent     decimal.Decimal `json:"avg_current"`
	AvgActivePower decimal.Decimal `json:"avg_active_power"`
	MaxEnergy      decimal.Decimal `json:"max_energy"`
	AvgFrequency   decimal.Decimal `json:"avg_frequency"`
	AvgPowerFactor decimal.Decimal `json:"avg_power_factor"`

	// MemberIDs lists the hourly row IDs folded into this bucket.
	MemberIDs []string `json:"member_ids"`
}

type bucketKey struct {
	start  time.Time
	device string
}

// BucketByPeriod groups hourly rows into day or month buckets. Device identity
// is part of the grouping key, so rows from different devices never share a
// bucket. An unknown period fails before any grouping; an empty input yields
// an empty (non-nil) result.
func BucketByPeriod(rows []v1.HourlyAggregate, period Period) ([]Bucket, error) {
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}

	groups := make(map[bucketKey][]v1.HourlyAggregate)
	for _, row := range rows {
		key := bucketKey{start: truncateToPeriod(row.HourBucket, period), device: row.DeviceName}
		groups[key] = append(groups[key], row)
	}

	buckets := make([]Bucket, 0, len(groups))
	for key, members := range groups {
		buckets = append(buckets, foldBucket(period, key, members))
	}

	sort.Slice(buckets, func(i, j int) bool {
		if !buckets[i].BucketStart.Equal(buckets[j].BucketStart) {
			return buckets[i].BucketStart.Before(buckets[j].BucketStart)
		}
		return buckets[i].DeviceName < buckets[j].DeviceName
	})

	return buckets, nil
}

func foldBucket(period Period, key bucketKey, members []v1.HourlyAggregate) Bucket {
	var (
		voltage, current, activePower decimal.Decimal
		frequency, powerFactor        decimal.Decimal
		maxEnergy                     decimal.Decimal
		ids                           = make([]string, 0, len(members))
	)

	for i, m := range members {
		voltage = voltage.Add(m.AvgVoltage)
		current = current.Add(m.AvgCurrent)
		activePower = activePower.Add(m.AvgActivePower)
		frequency = frequency.Add(m.AvgFrequency)
		powerFactor = powerFactor.Add(m.AvgPowerFactor)
		if i == 0 || m.MaxEnergy.GreaterThan(maxEnergy) {
			maxEnergy = m.MaxEnergy
		}
		ids = append(ids, m.ID)
	}

	n := decimal.NewFromInt(int64(len(members)))
	return Bucket{
		Period:         period,
		BucketStart:    key.start,
		DeviceName:     key.device,
		AvgVoltage:     voltage.Div(n).Round(2),
		AvgCurrent:     current.Div(n).Round(2),
		AvgActivePower: activePower.Div(n).Round(2),
		MaxEnergy:      maxEnergy,
		AvgFrequency:   frequency.Div(n).Round(2),
		AvgPowerFactor: powerFactor.Div(n).Round(2),
		MemberIDs:      ids,
	}
}

func truncateToPeriod(t time.Time, period Period) time.Time {
	t = t.UTC()
	if period == PeriodMonth {
		year, month, _ := t.Date()
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	}
	return IntervalDay.Truncate(t)
}
