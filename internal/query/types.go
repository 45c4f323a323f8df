package query

import (
	"time"

	v1 "github.com/gridwatch-lab/gridwatch/internal/api/v1"
	"github.com/gridwatch-lab/gridwatch/internal/core/rollup"
)

// HourlyQuery describes one read request over the hourly aggregate table.
// Zero-value fields mean "no constraint"; Period empty means raw hourly rows
// without re-bucketing.
type HourlyQuery struct {
	Period string
	Device string
	Start  time.Time
	End    time.Time
	Date   time.Time
}

// HourlyResult carries either the hourly rows or the derived buckets,
// depending on whether the request asked for a period.
type HourlyResult struct {
	Period  string               `json:"period,omitempty"`
	Rows    []v1.HourlyAggregate `json:"rows,omitempty"`
	Buckets []rollup.Bucket      `json:"buckets,omitempty"`
	Count   int                  `json:"count"`
}

// DeleteBatch names hourly rows to remove for one device.
type DeleteBatch struct {
	IDs        []string `json:"ids"`
	DeviceName string   `json:"device_name"`
}

// UsagePoint is one formatted energy total for a day or month.
type UsagePoint struct {
	Period string `json:"period"`
	Energy string `json:"energy"`
}

// Summary is the aggregate usage overview served by the summary endpoint.
// Energy figures are formatted strings (Wh below 1000, kWh at or above).
type Summary struct {
	Today       string       `json:"today"`
	Yesterday   string       `json:"yesterday"`
	ThisMonth   string       `json:"this_month"`
	DeviceCount int          `json:"device_count"`
	Daily       []UsagePoint `json:"daily"`
	Monthly     []UsagePoint `json:"monthly"`
}
