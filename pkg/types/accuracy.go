package types

import "time"

// DailyAccuracyDebugging is a helper struct for debugging the accuracy calculations
type DailyAccuracyDebugging struct {
	Date      string  `json:"date"`
	RunID     string  `json:"runID"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
	Error     float64 `json:"error"` // predicted - actual
}

// AccuracyStats is the response type for the accuracy endpoint
type AccuracyStats struct {
	Kind           MetricKind               `json:"kind"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	Runs           int                      `json:"runs"`         // Forecast runs that overlapped the range
	DaysCompared   int                      `json:"daysCompared"` // Predicted days with an observed total to compare against
	MAE            float64                  `json:"mae"`          // Mean absolute error
	MAPE           float64                  `json:"mape"`         // Mean absolute percentage error (over non-zero actuals)
	Bias           float64                  `json:"bias"`         // Mean signed error, positive means over-forecasting
	DailyDebugging []DailyAccuracyDebugging `json:"dailyDebugging"`
}
