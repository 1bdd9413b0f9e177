package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ecosphere/forecast/pkg/common"
	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// hourlyVariables are the Open-Meteo hourly fields the regression models
// consume. Both the forecast and archive APIs accept the same list.
const hourlyVariables = "temperature_2m,cloud_cover,shortwave_radiation,direct_radiation,diffuse_radiation"

// openMeteoTimeLayout is the zone-less hour format Open-Meteo returns when
// asked for UTC.
const openMeteoTimeLayout = "2006-01-02T15:04"

// cacheTTL is how long an in-memory query result stays fresh.
const cacheTTL = 10 * time.Minute

// OpenMeteo implements the Provider interface using the Open-Meteo forecast
// and archive APIs. Historical observations are additionally persisted to an
// optional local cache so repeated training fetches don't burn API calls.
type OpenMeteo struct {
	forecastURL     string
	archiveURL      string
	dailyCallBudget int
	client          *http.Client
	cache           *ObservationCache

	mu            sync.Mutex
	lastFetchTime time.Time
	cachedKey     string
	cachedObs     []types.WeatherObservation
	budgetDay     string
	callsToday    int
}

// configuredOpenMeteo sets up flags for Open-Meteo and returns the instance.
// It uses lflag to register command-line flags for configuration.
func configuredOpenMeteo() *OpenMeteo {
	o := &OpenMeteo{
		client: common.HTTPClient(15 * time.Second),
	}
	forecastURL := lflag.String("openmeteo-forecast-url", "https://api.open-meteo.com/v1/forecast", "URL for the Open-Meteo forecast API")
	archiveURL := lflag.String("openmeteo-archive-url", "https://archive-api.open-meteo.com/v1/archive", "URL for the Open-Meteo historical archive API")
	cachePath := lflag.String("weather-cache-path", "", "Path to the local observation cache database (empty disables it)")
	budget := 950
	lflag.JSON(&budget, "openmeteo-daily-call-budget", budget, "Maximum Open-Meteo API calls per UTC day (0 disables the limit)")

	lflag.Do(func() {
		o.forecastURL = *forecastURL
		o.archiveURL = *archiveURL
		o.dailyCallBudget = budget
		if *cachePath != "" {
			cache, err := OpenObservationCache(*cachePath)
			if err != nil {
				panic(fmt.Errorf("failed to open weather cache (%s): %w", *cachePath, err))
			}
			o.cache = cache
		}
	})

	return o
}

// Validate ensures the configuration is valid.
func (o *OpenMeteo) Validate() error {
	if o.forecastURL == "" {
		return fmt.Errorf("openmeteo-forecast-url is required")
	}
	if _, err := url.Parse(o.forecastURL); err != nil {
		return fmt.Errorf("failed to parse forecast url (%s): %w", o.forecastURL, err)
	}
	if o.archiveURL == "" {
		return fmt.Errorf("openmeteo-archive-url is required")
	}
	if _, err := url.Parse(o.archiveURL); err != nil {
		return fmt.Errorf("failed to parse archive url (%s): %w", o.archiveURL, err)
	}
	if o.dailyCallBudget < 0 {
		return fmt.Errorf("openmeteo-daily-call-budget must not be negative")
	}
	return nil
}

// GetHistorical returns hourly observations covering [start, end). Fully
// cached ranges are served locally; otherwise the archive API is hit and the
// result is written back to the cache.
func (o *OpenMeteo) GetHistorical(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]types.WeatherObservation, error) {
	start = start.UTC()
	end = end.UTC()
	key := fmt.Sprintf("historical:%.4f:%.4f:%s:%s", latitude, longitude, start.Format(time.RFC3339), end.Format(time.RFC3339))
	if obs, ok := o.memoryCached(key); ok {
		return obs, nil
	}

	expectedHours := int(end.Sub(start).Hours())
	if o.cache != nil {
		obs, err := o.cache.GetRange(ctx, latitude, longitude, start, end)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to read weather cache", slog.Any("error", err))
		} else if len(obs) >= expectedHours {
			o.remember(key, obs)
			return obs, nil
		}
	}

	if !o.reserveCall() {
		// out of budget, stale local data beats nothing
		if o.cache != nil {
			obs, err := o.cache.GetRange(ctx, latitude, longitude, start, end)
			if err == nil && len(obs) > 0 {
				log.Ctx(ctx).WarnContext(ctx, "weather call budget exhausted, serving partial cache",
					slog.Int("observations", len(obs)),
					slog.Int("expected", expectedHours),
				)
				return obs, nil
			}
		}
		return nil, fmt.Errorf("openmeteo daily call budget of %d exhausted", o.dailyCallBudget)
	}

	params := url.Values{}
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Add(-time.Hour).Format("2006-01-02"))
	obs, err := o.fetchHourly(ctx, o.archiveURL, latitude, longitude, params)
	if err != nil {
		return nil, err
	}

	// keep only the requested window, the API returns whole days
	filtered := obs[:0]
	for _, ob := range obs {
		if !ob.Timestamp.Before(start) && ob.Timestamp.Before(end) {
			filtered = append(filtered, ob)
		}
	}

	if o.cache != nil {
		if err := o.cache.Store(ctx, latitude, longitude, filtered); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to write weather cache", slog.Any("error", err))
		}
	}
	o.remember(key, filtered)
	return filtered, nil
}

// GetForecast returns predicted hourly observations for the next days days.
// Forecasts change between model runs so they are only memory-cached, never
// written to the local cache.
func (o *OpenMeteo) GetForecast(ctx context.Context, latitude, longitude float64, days int) ([]types.WeatherObservation, error) {
	key := fmt.Sprintf("forecast:%.4f:%.4f:%d", latitude, longitude, days)
	if obs, ok := o.memoryCached(key); ok {
		return obs, nil
	}

	if !o.reserveCall() {
		return nil, fmt.Errorf("openmeteo daily call budget of %d exhausted", o.dailyCallBudget)
	}

	params := url.Values{}
	params.Set("forecast_days", fmt.Sprintf("%d", days))
	obs, err := o.fetchHourly(ctx, o.forecastURL, latitude, longitude, params)
	if err != nil {
		return nil, err
	}
	o.remember(key, obs)
	return obs, nil
}

// openMeteoHourly is the parallel-array hourly block both APIs return.
type openMeteoHourly struct {
	Time               []string  `json:"time"`
	Temperature2m      []float64 `json:"temperature_2m"`
	CloudCover         []float64 `json:"cloud_cover"`
	ShortwaveRadiation []float64 `json:"shortwave_radiation"`
	DirectRadiation    []float64 `json:"direct_radiation"`
	DiffuseRadiation   []float64 `json:"diffuse_radiation"`
}

type openMeteoResponse struct {
	Hourly openMeteoHourly `json:"hourly"`
}

// fetchHourly calls one of the Open-Meteo APIs and flattens the
// parallel-array response into observations.
func (o *OpenMeteo) fetchHourly(ctx context.Context, baseURL string, latitude, longitude float64, extra url.Values) ([]types.WeatherObservation, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", latitude))
	params.Set("longitude", fmt.Sprintf("%.4f", longitude))
	params.Set("hourly", hourlyVariables)
	params.Set("timezone", "UTC")
	for k, vs := range extra {
		for _, v := range vs {
			params.Set(k, v)
		}
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching weather from open-meteo", slog.String("url", u.String()))

	resp, err := o.client.Do(req)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch weather", slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open-meteo api returned status: %d", resp.StatusCode)
	}

	var data openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode open-meteo response", slog.Any("error", err))
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	at := func(vals []float64, i int) float64 {
		if i < len(vals) {
			return vals[i]
		}
		return 0
	}

	obs := make([]types.WeatherObservation, 0, len(data.Hourly.Time))
	var earliest time.Time
	var latest time.Time
	for i, raw := range data.Hourly.Time {
		ts, err := time.Parse(openMeteoTimeLayout, raw)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse open-meteo time", slog.String("value", raw), slog.Any("error", err))
			continue
		}
		obs = append(obs, types.WeatherObservation{
			Timestamp:          ts,
			Temperature:        at(data.Hourly.Temperature2m, i),
			CloudCover:         at(data.Hourly.CloudCover, i),
			ShortwaveRadiation: at(data.Hourly.ShortwaveRadiation, i),
			DirectRadiation:    at(data.Hourly.DirectRadiation, i),
			DiffuseRadiation:   at(data.Hourly.DiffuseRadiation, i),
		})
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if ts.After(latest) {
			latest = ts
		}
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched weather observations",
		slog.Int("count", len(obs)),
		slog.Time("earliest", earliest),
		slog.Time("latest", latest),
	)
	return obs, nil
}

// memoryCached returns the cached result if it matches the key and is fresh.
func (o *OpenMeteo) memoryCached(key string) ([]types.WeatherObservation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cachedKey == key && time.Since(o.lastFetchTime) < cacheTTL {
		return o.cachedObs, true
	}
	return nil, false
}

// remember stores the latest query result in the memory cache.
func (o *OpenMeteo) remember(key string, obs []types.WeatherObservation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cachedKey = key
	o.cachedObs = obs
	o.lastFetchTime = time.Now()
}

// reserveCall counts an API call against the daily budget, resetting the
// counter at UTC midnight. Returns false when the budget is spent.
func (o *OpenMeteo) reserveCall() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	if o.budgetDay != today {
		o.budgetDay = today
		o.callsToday = 0
	}
	if o.dailyCallBudget > 0 && o.callsToday >= o.dailyCallBudget {
		return false
	}
	o.callsToday++
	return true
}
