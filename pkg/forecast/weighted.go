package forecast

import (
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

const (
	lastYearWeight = 0.3
	lastWeekWeight = 0.5
	recentWeight   = 0.2
)

// forecastSeasonalWeighted blends, per forecast day, the total from the same
// day last year, the total from a week ago, and the recent 30-day average.
// Runs when a year-ago window exists but the series is too patchy for full
// smoothing.
func forecastSeasonalWeighted(samples []types.MetricSample, targetDate time.Time, horizonDays int) []types.Prediction {
	totals := dailyTotals(samples)
	byDate := dailyTotalMap(totals)
	recentAvg := meanTotals(windowTotals(totals, targetDate, 30, true))

	preds := make([]types.Prediction, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		day := targetDate.AddDate(0, 0, i)
		lastYear := totalOrWeekAverage(byDate, day.AddDate(-1, 0, 0))
		lastWeek := totalOrWeekAverage(byDate, day.AddDate(0, 0, -7))
		preds = append(preds, types.Prediction{
			Date:  dateKey(day),
			Value: lastYearWeight*lastYear + lastWeekWeight*lastWeek + recentWeight*recentAvg,
		})
	}
	return preds
}

// totalOrWeekAverage returns the total for the given day, falling back to the
// average of the 7 days ending at it when that single day has no data.
func totalOrWeekAverage(byDate map[string]DailyTotal, day time.Time) float64 {
	if t, ok := byDate[dateKey(day)]; ok {
		return t.Total
	}
	var sum float64
	var n int
	for off := 0; off < 7; off++ {
		if t, ok := byDate[dateKey(day.AddDate(0, 0, -off))]; ok {
			sum += t.Total
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
