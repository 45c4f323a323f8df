package rollup

import (
	"testing"
	"time"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func reading(device string, ts time.Time, voltage, current, energy float64) v1.Reading {
	return v1.Reading{
		ID:          "r-" + ts.Format("150405") + "-" + device,
		DeviceName:  device,
		Timestamp:   ts,
		Voltage:     decimal.NewFromFloat(voltage),
		Current:     decimal.NewFromFloat(current),
		ActivePower: decimal.NewFromFloat(voltage * current),
		Energy:      decimal.NewFromFloat(energy),
		Frequency:   decimal.NewFromInt(60),
		PowerFactor: decimal.NewFromFloat(0.95),
	}
}

func TestSummarize_HourlyAverageAndMaxEnergy(t *testing.T) {
	base := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	readings := []v1.Reading{
		reading("device-a", base.Add(15*time.Minute), 220, 2, 10),
		reading("device-a", base.Add(45*time.Minute), 222, 3, 12),
	}

	aggregates, err := Summarize(readings, IntervalHour)
	require.NoError(t, err)
	require.Len(t, aggregates, 1)

	agg := aggregates[0]
	require.Equal(t, base, agg.HourBucket)
	require.Equal(t, "device-a", agg.DeviceName)
	require.True(t, agg.AvgVoltage.Equal(decimal.NewFromInt(221)), "avg_voltage = %s", agg.AvgVoltage)
	require.True(t, agg.AvgCurrent.Equal(decimal.NewFromFloat(2.5)), "avg_current = %s", agg.AvgCurrent)
	require.True(t, agg.MaxEnergy.Equal(decimal.NewFromInt(12)), "max_energy = %s", agg.MaxEnergy)
	require.NotEmpty(t, agg.ID)
}

func TestSummarize_OneRowPerHourAndDevice(t *testing.T) {
	hour1 := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	hour2 := hour1.Add(time.Hour)
	readings := []v1.Reading{
		reading("device-a", hour1.Add(5*time.Minute), 220, 2, 10),
		reading("device-b", hour1.Add(10*time.Minute), 230, 1, 4),
		reading("device-a", hour2.Add(20*time.Minute), 221, 2, 11),
	}

	aggregates, err := Summarize(readings, IntervalHour)
	require.NoError(t, err)
	require.Len(t, aggregates, 3)

	// Sorted by bucket then device.
	require.Equal(t, "device-a", aggregates[0].DeviceName)
	require.Equal(t, "device-b", aggregates[1].DeviceName)
	require.Equal(t, hour1, aggregates[0].HourBucket)
	require.Equal(t, hour1, aggregates[1].HourBucket)
	require.Equal(t, hour2, aggregates[2].HourBucket)
}

func TestSummarize_RerunProducesSameGroups(t *testing.T) {
	base := time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC)
	readings := []v1.Reading{
		reading("device-a", base.Add(1*time.Minute), 219, 2, 100),
		reading("device-a", base.Add(2*time.Minute), 221, 2, 101),
	}

	first, err := Summarize(readings, IntervalHour)
	require.NoError(t, err)
	second, err := Summarize(readings, IntervalHour)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	require.Equal(t, first[0].HourBucket, second[0].HourBucket)
	require.Equal(t, first[0].DeviceName, second[0].DeviceName)
	require.True(t, first[0].AvgVoltage.Equal(second[0].AvgVoltage))
	require.True(t, first[0].MaxEnergy.Equal(second[0].MaxEnergy))
}

func TestSummarize_EmptyInput(t *testing.T) {
	aggregates, err := Summarize(nil, IntervalHour)
	require.NoError(t, err)
	require.Empty(t, aggregates)
}

func TestSummarize_RejectsUnknownInterval(t *testing.T) {
	_, err := Summarize(nil, Interval("fortnight"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported interval")
}

func TestSummarize_DayInterval(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	readings := []v1.Reading{
		reading("device-a", day.Add(1*time.Hour), 220, 2, 10),
		reading("device-a", day.Add(23*time.Hour), 224, 2, 30),
	}

	aggregates, err := Summarize(readings, IntervalDay)
	require.NoError(t, err)
	require.Len(t, aggregates, 1)
	require.Equal(t, day, aggregates[0].HourBucket)
	require.True(t, aggregates[0].MaxEnergy.Equal(decimal.NewFromInt(30)))
}
