package forecast

// Strategy identifies one forecasting method. The five tier values are ranked
// by data sufficiency, most capable first; WeatherRegression sits outside the
// tier table and is chosen by the caller's use case, never by SelectStrategy.
type Strategy int

const (
	StrategySeasonalSmoothing Strategy = 1
	StrategySeasonalWeighted  Strategy = 2
	StrategyTrend             Strategy = 3
	StrategyMovingAverage     Strategy = 4
	StrategyInsufficient      Strategy = 5

	StrategyWeatherRegression Strategy = 6
)

func (s Strategy) String() string {
	switch s {
	case StrategySeasonalSmoothing:
		return "seasonal_smoothing"
	case StrategySeasonalWeighted:
		return "seasonal_weighted"
	case StrategyTrend:
		return "trend"
	case StrategyMovingAverage:
		return "moving_average"
	case StrategyInsufficient:
		return "insufficient"
	case StrategyWeatherRegression:
		return "weather_regression"
	}
	return "unknown"
}

// Decision is one row of the strategy table: the chosen strategy plus the
// published confidence, accuracy rating, and warning that go with it.
type Decision struct {
	Strategy   Strategy `json:"strategy"`
	Name       string   `json:"strategyName"`
	Confidence int      `json:"confidence"` // 0-100
	Accuracy   string   `json:"accuracy"`
	Warning    string   `json:"warning,omitempty"`
}

// SelectStrategy maps an availability snapshot to a strategy. Evaluated top
// to bottom, first match wins; there is no scoring. A pure function so the
// same snapshot always produces the same decision.
func SelectStrategy(a DataAvailability) Decision {
	switch {
	case a.HasOneYearCycle && a.CompletenessScore >= 70:
		return Decision{
			Strategy:   StrategySeasonalSmoothing,
			Name:       StrategySeasonalSmoothing.String(),
			Confidence: 90,
			Accuracy:   "5-star",
		}
	case a.HasLastYearData && a.HasRecent30Days:
		return Decision{
			Strategy:   StrategySeasonalWeighted,
			Name:       StrategySeasonalWeighted.String(),
			Confidence: 80,
			Accuracy:   "4-star",
			Warning:    "missing history, simplified seasonal",
		}
	case a.HasRecent30Days:
		return Decision{
			Strategy:   StrategyTrend,
			Name:       StrategyTrend.String(),
			Confidence: 65,
			Accuracy:   "3-star",
			Warning:    "no last-year data, trend only",
		}
	case a.HasRecent7Days:
		return Decision{
			Strategy:   StrategyMovingAverage,
			Name:       StrategyMovingAverage.String(),
			Confidence: 50,
			Accuracy:   "2-star",
			Warning:    "insufficient history, low accuracy",
		}
	}
	return Decision{
		Strategy:   StrategyInsufficient,
		Name:       StrategyInsufficient.String(),
		Confidence: 0,
		Accuracy:   "cannot predict",
		Warning:    "fewer than 7 days, cannot forecast",
	}
}
