package query

import (
	"context"
	"fmt"
	"time"

	"github.com/gridwatch-lab/gridwatch/internal/core/rollup"
	"github.com/gridwatch-lab/gridwatch/internal/core/storage"
	"github.com/shopspring/decimal"
)

const (
	summaryDailyDays    = 31
	summaryMonthlyCount = 12

	dayKeyFormat   = "2006-01-02"
	monthKeyFormat = "2006-01"
)

// UsageSummary builds the energy overview: per-day and per-month totals are
// sums across devices of each device's maximum cumulative energy counter in
// that period. Calendar boundaries follow the service's configured location.
func (s *Service) UsageSummary(ctx context.Context) (*Summary, error) {
	daily, err := s.aggregates.DailyMaxEnergy(ctx)
	if err != nil {
		return nil, fmt.Errorf("daily max energy: %w", err)
	}
	monthly, err := s.aggregates.MonthlyMaxEnergy(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly max energy: %w", err)
	}
	devices, err := s.aggregates.ListDeviceNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list device names: %w", err)
	}

	dailyTotals := sumByPeriod(daily, dayKeyFormat)
	monthlyTotals := sumByPeriod(monthly, monthKeyFormat)

	now := s.nowFn().In(s.loc)
	today := now.Format(dayKeyFormat)
	yesterday := now.AddDate(0, 0, -1).Format(dayKeyFormat)
	thisMonth := now.Format(monthKeyFormat)

	summary := &Summary{
		Today:       rollup.FormatEnergy(dailyTotals[today]),
		Yesterday:   rollup.FormatEnergy(dailyTotals[yesterday]),
		ThisMonth:   rollup.FormatEnergy(monthlyTotals[thisMonth]),
		DeviceCount: len(devices),
		Daily:       make([]UsagePoint, 0, summaryDailyDays),
		Monthly:     make([]UsagePoint, 0, summaryMonthlyCount),
	}

	for i := summaryDailyDays - 1; i >= 0; i-- {
		key := now.AddDate(0, 0, -i).Format(dayKeyFormat)
		summary.Daily = append(summary.Daily, UsagePoint{
			Period: key,
			Energy: rollup.FormatEnergy(dailyTotals[key]),
		})
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	for i := summaryMonthlyCount - 1; i >= 0; i-- {
		key := monthStart.AddDate(0, -i, 0).Format(monthKeyFormat)
		summary.Monthly = append(summary.Monthly, UsagePoint{
			Period: key,
			Energy: rollup.FormatEnergy(monthlyTotals[key]),
		})
	}

	return summary, nil
}

func sumByPeriod(rows []storage.DeviceEnergy, keyFormat string) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		key := row.PeriodStart.UTC().Format(keyFormat)
		totals[key] = totals[key].Add(row.MaxEnergy)
	}
	return totals
}
