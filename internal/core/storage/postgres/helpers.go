package postgres

import (
	"fmt"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReadingRow scans a readings row. NUMERIC columns come back as strings;
// parsing them through decimal keeps the arithmetic exact.
func scanReadingRow(row scanner) (v1.Reading, error) {
	var (
		r      v1.Reading
		fields [6]string
	)

	err := row.Scan(
		&r.ID,
		&r.DeviceName,
		&r.Timestamp,
		&fields[0], // voltage
		&fields[1], // current
		&fields[2], // active_power
		&fields[3], // energy
		&fields[4], // frequency
		&fields[5], // power_factor
	)
	if err != nil {
		return v1.Reading{}, fmt.Errorf("failed to scan reading row: %w", err)
	}

	dst := []*decimal.Decimal{
		&r.Voltage, &r.Current, &r.ActivePower, &r.Energy, &r.Frequency, &r.PowerFactor,
	}
	for i, raw := range fields {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return v1.Reading{}, fmt.Errorf("parse reading value %q: %w", raw, err)
		}
		*dst[i] = d
	}

	return r, nil
}

// scanAggregateRow scans a hourly_aggregates row.
func scanAggregateRow(row scanner) (v1.HourlyAggregate, error) {
	var (
		agg    v1.HourlyAggregate
		fields [6]string
	)

	err := row.Scan(
		&agg.ID,
		&agg.HourBucket,
		&agg.DeviceName,
		&fields[0], // avg_voltage
		&fields[1], // avg_current
		&fields[2], // avg_active_power
		&fields[3], // max_energy
		&fields[4], // avg_frequency
		&fields[5], // avg_power_factor
	)
	if err != nil {
		return v1.HourlyAggregate{}, fmt.Errorf("failed to scan aggregate row: %w", err)
	}

	dst := []*decimal.Decimal{
		&agg.AvgVoltage, &agg.AvgCurrent, &agg.AvgActivePower,
		&agg.MaxEnergy, &agg.AvgFrequency, &agg.AvgPowerFactor,
	}
	for i, raw := range fields {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return v1.HourlyAggregate{}, fmt.Errorf("parse aggregate value %q: %w", raw, err)
		}
		*dst[i] = d
	}

	return agg, nil
}
