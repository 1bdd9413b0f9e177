package types

import "time"

// WeatherObservation is one hour of weather at a site, either measured
// (historical) or predicted (forecast).
type WeatherObservation struct {
	Timestamp          time.Time `json:"timestamp"`
	Temperature        float64   `json:"temperature"`        // °C at 2m
	CloudCover         float64   `json:"cloudCover"`         // 0-100
	ShortwaveRadiation float64   `json:"shortwaveRadiation"` // W/m²
	DirectRadiation    float64   `json:"directRadiation"`    // W/m²
	DiffuseRadiation   float64   `json:"diffuseRadiation"`   // W/m²
}

// DailyWeatherAggregate collapses one day of hourly observations into the
// features the regression models train on.
type DailyWeatherAggregate struct {
	Date string `json:"date"` // YYYY-MM-DD (UTC)

	// Sums over the day
	TotalShortwaveRadiation float64 `json:"totalShortwaveRadiation"` // Wh/m²
	TotalDirectRadiation    float64 `json:"totalDirectRadiation"`    // Wh/m²
	TotalDiffuseRadiation   float64 `json:"totalDiffuseRadiation"`   // Wh/m²

	// Averages over the day
	AvgTemperature float64 `json:"avgTemperature"` // °C
	AvgCloudCover  float64 `json:"avgCloudCover"`  // 0-100

	// Hours with any shortwave radiation
	DaylightHours int `json:"daylightHours"`
}

// ThermalDailyStat is a per-sensor daily temperature summary as reported by
// home automation exports.
type ThermalDailyStat struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Sensor string  `json:"sensor"`
	High   float64 `json:"high"` // °C
	Low    float64 `json:"low"`  // °C
	Avg    float64 `json:"avg"`  // °C
}
