package rollup

import (
	"fmt"
	"sort"
	"time"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type groupKey struct {
	bucket time.Time
	device string
}

// accumulator folds readings for one (bucket, device) group.
// Averaged fields keep exact running sums; energy keeps the running max
// because it is a cumulative counter, so the bucket's end value is its peak.
type accumulator struct {
	count       int64
	voltage     decimal.Decimal
	current     decimal.Decimal
	activePower decimal.Decimal
	frequency   decimal.Decimal
	powerFactor decimal.Decimal
	maxEnergy   decimal.Decimal
}

func (a *accumulator) add(r v1.Reading) {
	if a.count == 0 {
		a.maxEnergy = r.Energy
	} else if r.Energy.GreaterThan(a.maxEnergy) {
		a.maxEnergy = r.Energy
	}
	a.voltage = a.voltage.Add(r.Voltage)
	a.current = a.current.Add(r.Current)
	a.activePower = a.activePower.Add(r.ActivePower)
	a.frequency = a.frequency.Add(r.Frequency)
	a.powerFactor = a.powerFactor.Add(r.PowerFactor)
	a.count++
}

// Summarize downsamples raw readings into one aggregate row per
// (interval bucket, device). Averages are exact decimal means; energy is the
// per-group maximum. Output is sorted by bucket then device so re-runs over
// the same input produce identical row order.
func Summarize(readings []v1.Reading, interval Interval) ([]v1.HourlyAggregate, error) {
	if !interval.Valid() {
		return nil, fmt.Errorf("summarize: unsupported interval %q", interval)
	}

	groups := make(map[groupKey]*accumulator)
	for _, r := range readings {
		key := groupKey{bucket: interval.Truncate(r.Timestamp), device: r.DeviceName}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.add(r)
	}

	aggregates := make([]v1.HourlyAggregate, 0, len(groups))
	for key, acc := range groups {
		n := decimal.NewFromInt(acc.count)
		aggregates = append(aggregates, v1.HourlyAggregate{
			ID:             uuid.NewString(),
			HourBucket:     key.bucket,
			DeviceName:     key.device,
			AvgVoltage:     acc.voltage.Div(n),
			AvgCurrent:     acc.current.Div(n),
			AvgActivePower: acc.activePower.Div(n),
			MaxEnergy:      acc.maxEnergy,
			AvgFrequency:   acc.frequency.Div(n),
			AvgPowerFactor: acc.powerFactor.Div(n),
		})
	}

	sort.Slice(aggregates, func(i, j int) bool {
		if !aggregates[i].HourBucket.Equal(aggregates[j].HourBucket) {
			return aggregates[i].HourBucket.Before(aggregates[j].HourBucket)
		}
		return aggregates[i].DeviceName < aggregates[j].DeviceName
	})

	return aggregates, nil
}
