package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectStrategy(t *testing.T) {
	t.Run("full year -> seasonal smoothing", func(t *testing.T) {
		d := SelectStrategy(DataAvailability{
			HasOneYearCycle:   true,
			HasLastYearData:   true,
			HasRecent30Days:   true,
			HasRecent7Days:    true,
			CompletenessScore: 85,
		})
		assert.Equal(t, StrategySeasonalSmoothing, d.Strategy)
		assert.Equal(t, "seasonal_smoothing", d.Name)
		assert.Equal(t, 90, d.Confidence)
		assert.Equal(t, "5-star", d.Accuracy)
		assert.Empty(t, d.Warning)
	})

	t.Run("patchy year -> seasonal weighted", func(t *testing.T) {
		// a year of points but too many holes for smoothing
		d := SelectStrategy(DataAvailability{
			HasOneYearCycle:   true,
			HasLastYearData:   true,
			HasRecent30Days:   true,
			HasRecent7Days:    true,
			CompletenessScore: 60,
		})
		assert.Equal(t, StrategySeasonalWeighted, d.Strategy)
		assert.Equal(t, 80, d.Confidence)
		assert.Equal(t, "4-star", d.Accuracy)
		assert.Equal(t, "missing history, simplified seasonal", d.Warning)
	})

	t.Run("no last year -> trend", func(t *testing.T) {
		d := SelectStrategy(DataAvailability{
			HasRecent30Days: true,
			HasRecent7Days:  true,
		})
		assert.Equal(t, StrategyTrend, d.Strategy)
		assert.Equal(t, 65, d.Confidence)
		assert.Equal(t, "3-star", d.Accuracy)
		assert.Equal(t, "no last-year data, trend only", d.Warning)
	})

	t.Run("only a week -> moving average", func(t *testing.T) {
		d := SelectStrategy(DataAvailability{
			HasRecent7Days: true,
		})
		assert.Equal(t, StrategyMovingAverage, d.Strategy)
		assert.Equal(t, 50, d.Confidence)
		assert.Equal(t, "2-star", d.Accuracy)
		assert.Equal(t, "insufficient history, low accuracy", d.Warning)
	})

	t.Run("nothing -> insufficient", func(t *testing.T) {
		d := SelectStrategy(DataAvailability{})
		assert.Equal(t, StrategyInsufficient, d.Strategy)
		assert.Equal(t, 0, d.Confidence)
		assert.Equal(t, "cannot predict", d.Accuracy)
		assert.Equal(t, "fewer than 7 days, cannot forecast", d.Warning)
	})

	t.Run("last year without recent 30 skips the weighted tier", func(t *testing.T) {
		// first match wins top to bottom, so this lands on moving average
		d := SelectStrategy(DataAvailability{
			HasLastYearData: true,
			HasRecent7Days:  true,
		})
		assert.Equal(t, StrategyMovingAverage, d.Strategy)
	})

	t.Run("same snapshot, same decision", func(t *testing.T) {
		a := DataAvailability{HasRecent30Days: true, HasRecent7Days: true, CompletenessScore: 40}
		assert.Equal(t, SelectStrategy(a), SelectStrategy(a))
	})
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "seasonal_smoothing", StrategySeasonalSmoothing.String())
	assert.Equal(t, "seasonal_weighted", StrategySeasonalWeighted.String())
	assert.Equal(t, "trend", StrategyTrend.String())
	assert.Equal(t, "moving_average", StrategyMovingAverage.String())
	assert.Equal(t, "insufficient", StrategyInsufficient.String())
	assert.Equal(t, "weather_regression", StrategyWeatherRegression.String())
	assert.Equal(t, "unknown", Strategy(99).String())
}
