package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

var ErrSiteNotFound = errors.New("site not found")

// Database defines the interface for persisting samples, forecast runs, and settings.
type Database interface {
	// Settings
	GetSettings(ctx context.Context, siteID string) (types.Settings, int, error)
	SetSettings(ctx context.Context, siteID string, settings types.Settings, version int) error

	// Samples
	// UpsertSamples adds or updates a batch of metric samples.
	UpsertSamples(ctx context.Context, siteID string, kind types.MetricKind, samples []types.MetricSample, version int) error
	GetSampleHistory(ctx context.Context, siteID string, kind types.MetricKind, start, end time.Time) ([]types.MetricSample, error)
	GetLatestSampleTime(ctx context.Context, siteID string, kind types.MetricKind) (time.Time, int, error)

	// Forecast runs
	InsertForecast(ctx context.Context, siteID string, record types.ForecastRecord) error
	GetForecastHistory(ctx context.Context, siteID string, kind types.MetricKind, start, end time.Time) ([]types.ForecastRecord, error)
	GetLatestForecast(ctx context.Context, siteID string, kind types.MetricKind) (*types.ForecastRecord, error)

	// Sites
	GetSite(ctx context.Context, siteID string) (types.Site, error)
	ListSites(ctx context.Context) ([]types.Site, error)
	CreateSite(ctx context.Context, siteID string, site types.Site) error
	UpdateSite(ctx context.Context, siteID string, site types.Site) error

	// Lifecycle
	Close() error
}
