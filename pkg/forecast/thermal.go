package forecast

import (
	"sort"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

// CollapseThermalDailyStats reduces per-sensor daily temperature summaries to
// a single synthetic series with one sample per date, the mean of the sensor
// averages, stamped at midday UTC. The result can then flow through the same
// training path as any hourly history.
func CollapseThermalDailyStats(stats []types.ThermalDailyStat) []types.MetricSample {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, st := range stats {
		sums[st.Date] += st.Avg
		counts[st.Date]++
	}

	dates := make([]string, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	samples := make([]types.MetricSample, 0, len(dates))
	for _, d := range dates {
		day, err := time.ParseInLocation("2006-01-02", d, time.UTC)
		if err != nil {
			continue
		}
		samples = append(samples, types.MetricSample{
			Timestamp: day.Add(12 * time.Hour),
			Value:     sums[d] / float64(counts[d]),
		})
	}
	return samples
}
