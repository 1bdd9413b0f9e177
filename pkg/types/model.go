package types

import "time"

const (
	CurrentSampleHistoryVersion   = 1
	CurrentForecastHistoryVersion = 1

	SiteIDNone = "none"
)

// Site represents a household or location whose meters we forecast for.
type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// MetricKind identifies which measured series a sample or forecast belongs to.
type MetricKind string

const (
	MetricConsumption MetricKind = "consumption"
	MetricGeneration  MetricKind = "generation"
	MetricTemperature MetricKind = "temperature"
)

// MetricKinds returns every supported kind in a stable order.
func MetricKinds() []MetricKind {
	return []MetricKind{MetricConsumption, MetricGeneration, MetricTemperature}
}

// Valid returns true if the kind is one we store and forecast.
func (k MetricKind) Valid() bool {
	switch k {
	case MetricConsumption, MetricGeneration, MetricTemperature:
		return true
	}
	return false
}

// MetricSample is a single hourly reading of a metric.
type MetricSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"` // kWh for energy kinds, °C for temperature
}

// Prediction is one forecast day.
type Prediction struct {
	Date  string  `json:"date"` // YYYY-MM-DD (UTC)
	Value float64 `json:"value"`
}

// ForecastRecord is a stored forecast run so accuracy can be judged later
// against what actually happened.
type ForecastRecord struct {
	RunID       string     `json:"runID"`
	CreatedAt   time.Time  `json:"createdAt"`
	Kind        MetricKind `json:"kind"`
	TargetDate  time.Time  `json:"targetDate"`
	HorizonDays int        `json:"horizonDays"`

	Strategy     int    `json:"strategy"`
	StrategyName string `json:"strategyName"`
	Confidence   int    `json:"confidence"` // 0-100
	Accuracy     string `json:"accuracy"`
	Warning      string `json:"warning,omitempty"`
	// RSquared is only set for weather regression runs.
	RSquared float64 `json:"rSquared,omitempty"`

	Predictions []Prediction `json:"predictions"`
}
