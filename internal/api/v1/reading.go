package v1

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reading is one raw telemetry sample reported by a power meter.
// Readings are immutable once written; the ingestion path owns them and the
// retention pruner is the only component allowed to delete them.
type Reading struct {
	// ID is the unique row identifier (UUID, assigned at ingestion).
	ID string `json:"id"`

	// DeviceName identifies the reporting meter (e.g. "pzem-livingroom").
	DeviceName string `json:"device_name"`

	// Timestamp is when the sample was taken (meter clock, UTC).
	Timestamp time.Time `json:"timestamp"`

	Voltage     decimal.Decimal `json:"voltage"`      // volts
	Current     decimal.Decimal `json:"current"`      // amperes
	ActivePower decimal.Decimal `json:"active_power"` // watts

	// Energy is a cumulative counter (watt-hours). It increases monotonically
	// per device until the meter is reset, so the end-of-window value is the
	// maximum within the window, never a sum.
	Energy decimal.Decimal `json:"energy"`

	Frequency   decimal.Decimal `json:"frequency"`    // hertz
	PowerFactor decimal.Decimal `json:"power_factor"` // 0..1
}

// HourlyAggregate is one downsampled summary row per (hour_bucket, device).
// Created by the rollup pipeline, never mutated afterwards. The pair
// (HourBucket, DeviceName) is unique; the pipeline enforces this with an
// upsert write even if the table carries no constraint.
type HourlyAggregate struct {
	ID         string    `json:"id"`
	HourBucket time.Time `json:"hour_bucket"`
	DeviceName string    `json:"device_name"`

	AvgVoltage     decimal.Decimal `json:"avg_voltage"`
	AvgCurrent     decimal.Decimal `json:"avg_current"`
	AvgActivePower decimal.Decimal `json:"avg_active_power"`
	MaxEnergy      decimal.Decimal `json:"max_energy"`
	AvgFrequency   decimal.Decimal `json:"avg_frequency"`
	AvgPowerFactor decimal.Decimal `json:"avg_power_factor"`
}

// RunMarker records that the daily rollup pipeline ran for a calendar date.
// The idempotency guard reads the latest marker before every scheduled firing.
type RunMarker struct {
	RunDate    time.Time `json:"run_date"`
	RecordedAt time.Time `json:"recorded_at"`
}
