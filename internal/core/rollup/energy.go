package rollup

import "github.com/shopspring/decimal"

var kiloThreshold = decimal.NewFromInt(1000)

// FormatEnergy renders a watt-hour total for the summary endpoint:
// below 1000 as "<v> Wh", at or above as "<v/1000> kWh", two decimals.
func FormatEnergy(wattHours decimal.Decimal) string {
	if wattHours.GreaterThanOrEqual(kiloThreshold) {
		return wattHours.Div(kiloThreshold).StringFixed(2) + " kWh"
	}
	return wattHours.StringFixed(2) + " Wh"
}
