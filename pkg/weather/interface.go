package weather

import (
	"context"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

// Provider defines the interface for fetching hourly weather observations.
type Provider interface {
	// GetHistorical returns hourly observations covering [start, end).
	// This should be used for building regression training data.
	GetHistorical(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]types.WeatherObservation, error)

	// GetForecast returns predicted hourly observations for the next days
	// days starting today.
	GetForecast(ctx context.Context, latitude, longitude float64, days int) ([]types.WeatherObservation, error)

	// Validate ensures the configuration is valid.
	Validate() error
}
