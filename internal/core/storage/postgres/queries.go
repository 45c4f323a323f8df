package postgres

// SQL statements for telemetry storage. Readings are owned by the external
// ingestion path; this service only reads and prunes them.

const (
	queryListReadings = `
		SELECT
			id, device_name, timestamp, voltage, current,
			active_power, energy, frequency, power_factor
		FROM readings
		ORDER BY timestamp ASC, id ASC
	`

	// queryDeleteReadingsBefore prunes raw rows below the rollup cutoff.
	// Strictly-older comparison: rows at the cutoff hour are kept because
	// that hour may still be accumulating.
	queryDeleteReadingsBefore = `
		DELETE FROM readings
		WHERE timestamp < $1
	`

	// queryUpsertHourlyAggregate replaces the summary for an already-rolled-up
	// (hour_bucket, device_name) pair, which makes a crashed rollup safely
	// re-runnable. The original row ID survives re-runs.
	queryUpsertHourlyAggregate = `
		INSERT INTO hourly_aggregates (
			id, hour_bucket, device_name, avg_voltage, avg_current,
			avg_active_power, max_energy, avg_frequency, avg_power_factor
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (hour_bucket, device_name)
		DO UPDATE SET
			avg_voltage      = EXCLUDED.avg_voltage,
			avg_current      = EXCLUDED.avg_current,
			avg_active_power = EXCLUDED.avg_active_power,
			max_energy       = EXCLUDED.max_energy,
			avg_frequency    = EXCLUDED.avg_frequency,
			avg_power_factor = EXCLUDED.avg_power_factor
	`

	queryLatestHourBucket = `SELECT MAX(hour_bucket) FROM hourly_aggregates`

	queryListHourlyAggregates = `
		SELECT
			id, hour_bucket, device_name, avg_voltage, avg_current,
			avg_active_power, max_energy, avg_frequency, avg_power_factor
		FROM hourly_aggregates
		ORDER BY hour_bucket ASC, device_name ASC
	`

	queryListDeviceNames = `
		SELECT DISTINCT device_name
		FROM hourly_aggregates
		ORDER BY device_name ASC
	`

	queryDeleteHourlyAggregates = `
		DELETE FROM hourly_aggregates
		WHERE id = ANY($1) AND device_name = $2
	`

	queryDailyMaxEnergy = `
		SELECT device_name, DATE_TRUNC('day', hour_bucket) AS day, MAX(max_energy) AS highest_energy
		FROM hourly_aggregates
		GROUP BY device_name, day
		ORDER BY day DESC, device_name ASC
	`

	queryMonthlyMaxEnergy = `
		SELECT device_name, DATE_TRUNC('month', hour_bucket) AS month, MAX(max_energy) AS highest_energy
		FROM hourly_aggregates
		GROUP BY device_name, month
		ORDER BY month DESC, device_name ASC
	`

	queryLatestRunMarker = `
		SELECT run_date, recorded_at
		FROM rollup_runs
		ORDER BY run_date DESC
		LIMIT 1
	`

	queryRecordRunMarker = `
		INSERT INTO rollup_runs (run_date, recorded_at)
		VALUES ($1, $2)
		ON CONFLICT (run_date) DO UPDATE SET recorded_at = EXCLUDED.recorded_at
	`
)
