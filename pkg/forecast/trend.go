package forecast

import (
	"math"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

// forecastTrend fits a least-squares line through the last 30 days of daily
// totals and extrapolates it, clamped at zero. The fit regresses against the
// index 0..n-1 rather than calendar dates, so gaps compress the slope, a
// known approximation the confidence scores were tuned against.
func forecastTrend(samples []types.MetricSample, targetDate time.Time, horizonDays int) []types.Prediction {
	totals := dailyTotals(samples)
	var usable []DailyTotal
	if len(samples) > 0 {
		usable = windowTotals(totals, samples[len(samples)-1].Timestamp, 30, true)
	}

	if len(usable) < 2 {
		// not enough days to fit a line, repeat the most recent total flat
		var base float64
		if len(usable) == 1 {
			base = usable[0].Total
		} else if len(totals) > 0 {
			base = totals[len(totals)-1].Total
		}
		return flatPredictions(targetDate, horizonDays, math.Max(0, base))
	}

	slope := indexSlope(usable)
	last := usable[len(usable)-1].Total
	preds := make([]types.Prediction, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		preds = append(preds, types.Prediction{
			Date:  dateKey(targetDate.AddDate(0, 0, i-1)),
			Value: math.Max(0, last+slope*float64(i)),
		})
	}
	return preds
}

// indexSlope is the ordinary least-squares slope of totals against their
// index sequence 0..n-1.
func indexSlope(totals []DailyTotal) float64 {
	n := float64(len(totals))
	var sumX, sumY, sumXY, sumX2 float64
	for i, t := range totals {
		x := float64(i)
		sumX += x
		sumY += t.Total
		sumXY += x * t.Total
		sumX2 += x * x
	}
	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denominator
}

// flatPredictions repeats a single value across the horizon.
func flatPredictions(targetDate time.Time, horizonDays int, value float64) []types.Prediction {
	preds := make([]types.Prediction, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		preds = append(preds, types.Prediction{
			Date:  dateKey(targetDate.AddDate(0, 0, i)),
			Value: value,
		})
	}
	return preds
}
