package forecast

import (
	"math"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

// ComputeAccuracy scores stored forecast runs against what the meters actually
// recorded. Every predicted day whose UTC date falls in [start, end) and has
// at least one observed sample is compared; days the meters never reported are
// skipped, not counted as misses. Pure function of its inputs.
func ComputeAccuracy(kind types.MetricKind, start, end time.Time, records []types.ForecastRecord, samples []types.MetricSample) types.AccuracyStats {
	stats := types.AccuracyStats{
		Kind:  kind,
		Start: start,
		End:   end,
	}
	actuals := dailyTotalMap(dailyTotals(samples))
	startDay := time.Date(start.UTC().Year(), start.UTC().Month(), start.UTC().Day(), 0, 0, 0, 0, time.UTC)

	var sumAbs, sumSigned, sumPct float64
	var pctCount int
	for _, rec := range records {
		contributed := false
		for _, p := range rec.Predictions {
			day, err := time.Parse("2006-01-02", p.Date)
			if err != nil {
				continue
			}
			if day.Before(startDay) || !day.Before(end) {
				continue
			}
			actual, ok := actuals[p.Date]
			if !ok {
				continue
			}
			diff := p.Value - actual.Total
			sumAbs += math.Abs(diff)
			sumSigned += diff
			if actual.Total != 0 {
				sumPct += math.Abs(diff) / actual.Total * 100
				pctCount++
			}
			stats.DailyDebugging = append(stats.DailyDebugging, types.DailyAccuracyDebugging{
				Date:      p.Date,
				RunID:     rec.RunID,
				Predicted: p.Value,
				Actual:    actual.Total,
				Error:     diff,
			})
			contributed = true
		}
		if contributed {
			stats.Runs++
		}
	}

	stats.DaysCompared = len(stats.DailyDebugging)
	if stats.DaysCompared > 0 {
		stats.MAE = sumAbs / float64(stats.DaysCompared)
		stats.Bias = sumSigned / float64(stats.DaysCompared)
	}
	if pctCount > 0 {
		stats.MAPE = sumPct / float64(pctCount)
	}
	return stats
}
