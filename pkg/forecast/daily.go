package forecast

import (
	"math"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

// completeDayMinSamples is the minimum hourly samples a day needs to count as
// complete. 20 of 24 tolerates a handful of dropped sensor reports.
const completeDayMinSamples = 20

// DailyTotal is the magnitude sum of one UTC calendar day's samples.
type DailyTotal struct {
	Date        string // YYYY-MM-DD
	Total       float64
	SampleCount int
}

// dateKey formats a time as the UTC calendar day it falls on.
func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// dailyTotals groups samples into UTC calendar days and sums their magnitudes.
// Samples arrive in non-decreasing timestamp order so one pass is enough; the
// result is ordered by date. Values are normalized to magnitude first since
// meters report generation as negative flow.
func dailyTotals(samples []types.MetricSample) []DailyTotal {
	var totals []DailyTotal
	for _, s := range samples {
		key := dateKey(s.Timestamp)
		if n := len(totals); n > 0 && totals[n-1].Date == key {
			totals[n-1].Total += math.Abs(s.Value)
			totals[n-1].SampleCount++
			continue
		}
		totals = append(totals, DailyTotal{
			Date:        key,
			Total:       math.Abs(s.Value),
			SampleCount: 1,
		})
	}
	return totals
}

// dailyTotalMap indexes totals by date for single-day lookups.
func dailyTotalMap(totals []DailyTotal) map[string]DailyTotal {
	byDate := make(map[string]DailyTotal, len(totals))
	for _, t := range totals {
		byDate[t.Date] = t
	}
	return byDate
}

// windowTotals returns the totals for the windowDays calendar days ending at
// end, optionally dropping the final day when its sample count is below the
// complete-day threshold. Every tier that averages or fits recent days shares
// this so the incomplete-last-day rule can't drift between them.
func windowTotals(totals []DailyTotal, end time.Time, windowDays int, excludeIncompleteLast bool) []DailyTotal {
	lowKey := dateKey(end.AddDate(0, 0, -(windowDays - 1)))
	highKey := dateKey(end)
	var window []DailyTotal
	for _, t := range totals {
		// YYYY-MM-DD compares correctly as a string
		if t.Date >= lowKey && t.Date <= highKey {
			window = append(window, t)
		}
	}
	if excludeIncompleteLast {
		if n := len(window); n > 0 && window[n-1].SampleCount < completeDayMinSamples {
			window = window[:n-1]
		}
	}
	return window
}

// meanTotals averages the totals, returning 0 for an empty window.
func meanTotals(totals []DailyTotal) float64 {
	if len(totals) == 0 {
		return 0
	}
	var sum float64
	for _, t := range totals {
		sum += t.Total
	}
	return sum / float64(len(totals))
}
