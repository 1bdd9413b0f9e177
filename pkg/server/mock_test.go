package server

import (
	"context"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
	"github.com/stretchr/testify/mock"
)

type mockWeather struct {
	mock.Mock
}

func (m *mockWeather) GetHistorical(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]types.WeatherObservation, error) {
	args := m.Called(ctx, latitude, longitude, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.WeatherObservation), args.Error(1)
	}
	return nil, nil
}

func (m *mockWeather) GetForecast(ctx context.Context, latitude, longitude float64, days int) ([]types.WeatherObservation, error) {
	args := m.Called(ctx, latitude, longitude, days)
	if len(args) > 0 {
		return args.Get(0).([]types.WeatherObservation), args.Error(1)
	}
	return nil, nil
}

func (m *mockWeather) Validate() error {
	args := m.Called()
	return args.Error(0)
}

// hourlySamples builds days*24 hourly samples of a constant value ending just
// before end.
func hourlySamples(end time.Time, days int, value float64) []types.MetricSample {
	start := end.AddDate(0, 0, -days)
	samples := make([]types.MetricSample, 0, days*24)
	for i := 0; i < days*24; i++ {
		samples = append(samples, types.MetricSample{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     value,
		})
	}
	return samples
}
