package forecast

import (
	"math"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

const (
	// One season is a week of hourly points so weekday/weekend shape survives.
	seasonalPeriodHours = 7 * 24

	levelSmoothing    = 0.5
	trendSmoothing    = 0.4
	seasonalSmoothing = 0.3
)

// forecastSeasonalSmoothing runs additive Holt-Winters smoothing over the
// hourly magnitude series and collapses each forecast day's 24 hourly points
// into one daily average. Only selected once a full year of data exists, so
// the smoother is always warmed up well past its first season.
func forecastSeasonalSmoothing(samples []types.MetricSample, targetDate time.Time, horizonDays int) []types.Prediction {
	hw := newHoltWinters(levelSmoothing, trendSmoothing, seasonalSmoothing, seasonalPeriodHours)
	for _, s := range samples {
		hw.update(math.Abs(s.Value))
	}

	preds := make([]types.Prediction, 0, horizonDays)
	for day := 0; day < horizonDays; day++ {
		var sum float64
		for hour := 0; hour < 24; hour++ {
			sum += hw.predict(day*24 + hour + 1)
		}
		preds = append(preds, types.Prediction{
			Date:  dateKey(targetDate.AddDate(0, 0, day)),
			Value: sum / 24,
		})
	}
	return preds
}

// holtWinters is triple exponential smoothing with additive seasonality.
type holtWinters struct {
	alpha       float64
	beta        float64
	gamma       float64
	seasonLen   int
	level       float64
	trend       float64
	seasonal    []float64
	samples     int
	initialized bool
}

func newHoltWinters(alpha, beta, gamma float64, seasonLen int) *holtWinters {
	return &holtWinters{
		alpha:     alpha,
		beta:      beta,
		gamma:     gamma,
		seasonLen: seasonLen,
		seasonal:  make([]float64, seasonLen),
	}
}

// update processes one value, updating level, trend, and seasonal components.
func (hw *holtWinters) update(value float64) {
	hw.samples++
	idx := (hw.samples - 1) % hw.seasonLen

	if !hw.initialized {
		// accumulate the first season raw
		hw.seasonal[idx] = value
		if hw.samples == hw.seasonLen {
			hw.initialize()
		}
		return
	}

	prevLevel := hw.level
	hw.level = hw.alpha*(value-hw.seasonal[idx]) + (1-hw.alpha)*(prevLevel+hw.trend)
	hw.trend = hw.beta*(hw.level-prevLevel) + (1-hw.beta)*hw.trend
	hw.seasonal[idx] = hw.gamma*(value-hw.level) + (1-hw.gamma)*hw.seasonal[idx]
}

// initialize derives level and seasonal deviations from the first full season.
func (hw *holtWinters) initialize() {
	hw.initialized = true
	var sum float64
	for _, v := range hw.seasonal {
		sum += v
	}
	hw.level = sum / float64(hw.seasonLen)
	hw.trend = 0
	for i := range hw.seasonal {
		hw.seasonal[i] -= hw.level
	}
}

// predict returns the forecast stepsAhead points past the last update.
func (hw *holtWinters) predict(stepsAhead int) float64 {
	if !hw.initialized {
		return 0
	}
	idx := (hw.samples + stepsAhead - 1) % hw.seasonLen
	return hw.level + float64(stepsAhead)*hw.trend + hw.seasonal[idx]
}
