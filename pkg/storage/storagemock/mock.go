package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ecosphere/forecast/pkg/storage"
	"github.com/ecosphere/forecast/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context, siteID string) (types.Settings, int, error) {
	args := m.Called(ctx, siteID)
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, siteID string, settings types.Settings, version int) error {
	args := m.Called(ctx, siteID, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) UpsertSamples(ctx context.Context, siteID string, kind types.MetricKind, samples []types.MetricSample, version int) error {
	args := m.Called(ctx, siteID, kind, samples, version)
	return args.Error(0)
}

func (m *MockDatabase) GetSampleHistory(ctx context.Context, siteID string, kind types.MetricKind, start, end time.Time) ([]types.MetricSample, error) {
	args := m.Called(ctx, siteID, kind, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.MetricSample), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetLatestSampleTime(ctx context.Context, siteID string, kind types.MetricKind) (time.Time, int, error) {
	args := m.Called(ctx, siteID, kind)
	if len(args) > 0 {
		return args.Get(0).(time.Time), args.Int(1), args.Error(2)
	}
	return time.Time{}, 0, nil
}

func (m *MockDatabase) InsertForecast(ctx context.Context, siteID string, record types.ForecastRecord) error {
	args := m.Called(ctx, siteID, record)
	return args.Error(0)
}

func (m *MockDatabase) GetForecastHistory(ctx context.Context, siteID string, kind types.MetricKind, start, end time.Time) ([]types.ForecastRecord, error) {
	args := m.Called(ctx, siteID, kind, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.ForecastRecord), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetLatestForecast(ctx context.Context, siteID string, kind types.MetricKind) (*types.ForecastRecord, error) {
	args := m.Called(ctx, siteID, kind)
	val := args.Get(0)
	if val == nil {
		return nil, args.Error(1)
	}
	return val.(*types.ForecastRecord), args.Error(1)
}

func (m *MockDatabase) GetSite(ctx context.Context, siteID string) (types.Site, error) {
	args := m.Called(ctx, siteID)
	if len(args) > 0 {
		return args.Get(0).(types.Site), args.Error(1)
	}
	return types.Site{}, nil
}

func (m *MockDatabase) ListSites(ctx context.Context) ([]types.Site, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).([]types.Site), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) CreateSite(ctx context.Context, siteID string, site types.Site) error {
	args := m.Called(ctx, siteID, site)
	return args.Error(0)
}

func (m *MockDatabase) UpdateSite(ctx context.Context, siteID string, site types.Site) error {
	args := m.Called(ctx, siteID, site)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
