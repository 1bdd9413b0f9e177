package forecast

import (
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

// forecastMovingAverage projects the mean of the last 7 daily totals flat
// across the horizon. The floor strategy, always computable once a week of
// data exists.
func forecastMovingAverage(samples []types.MetricSample, targetDate time.Time, horizonDays int) []types.Prediction {
	totals := dailyTotals(samples)
	var window []DailyTotal
	if len(samples) > 0 {
		window = windowTotals(totals, samples[len(samples)-1].Timestamp, 7, true)
	}
	if len(window) == 0 {
		window = totals
	}
	return flatPredictions(targetDate, horizonDays, meanTotals(window))
}
