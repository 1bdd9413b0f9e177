package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

// Request is one forecast invocation. Samples must be in non-decreasing
// timestamp order; the engine does not sort. The weather maps are keyed by
// YYYY-MM-DD date and are only consulted by ForecastWithWeather.
type Request struct {
	TargetDate        time.Time
	HorizonDays       int
	HistoricalSamples []types.MetricSample

	HistoricalWeather map[string]types.DailyWeatherAggregate
	ForecastWeather   map[string]types.DailyWeatherAggregate
}

// Metadata describes how a forecast was produced.
type Metadata struct {
	Strategy         Strategy         `json:"strategy"`
	StrategyName     string           `json:"strategyName"`
	Confidence       int              `json:"confidence"` // 0-100
	Accuracy         string           `json:"accuracy"`
	Warning          string           `json:"warning,omitempty"`
	DataAvailability DataAvailability `json:"dataAvailability"`
	// RegressionModel is only present on the weather regression path.
	RegressionModel *RegressionModel `json:"regressionModel,omitempty"`
}

// Result is a successful forecast: one prediction per horizon day plus the
// metadata explaining which strategy ran and how much to trust it.
type Result struct {
	Predictions []types.Prediction `json:"predictions"`
	Metadata    Metadata           `json:"metadata"`
}

// Engine runs forecasts. It holds no state, every call is a pure computation
// over the request, so one Engine can serve concurrent callers.
type Engine struct {
}

// NewEngine creates a new Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Forecast assesses the history, selects the best supportable strategy, and
// runs it. The selection is never silently downgraded: whatever degradation
// happened is visible in the returned warning and accuracy. An insufficient
// history fails with InsufficientDataError instead of returning numbers.
func (e *Engine) Forecast(ctx context.Context, req Request) (*Result, error) {
	if req.HorizonDays <= 0 {
		return nil, &InvalidRangeError{HorizonDays: req.HorizonDays}
	}

	avail := Assess(req.TargetDate, req.HorizonDays, req.HistoricalSamples)
	decision := SelectStrategy(avail)
	slog.DebugContext(ctx, "selected forecast strategy",
		slog.String("strategy", decision.Name),
		slog.Int("confidence", decision.Confidence),
		slog.Int("dataPoints", avail.TotalDataPoints),
		slog.Int("completeness", avail.CompletenessScore),
	)

	var preds []types.Prediction
	switch decision.Strategy {
	case StrategySeasonalSmoothing:
		preds = forecastSeasonalSmoothing(req.HistoricalSamples, req.TargetDate, req.HorizonDays)
	case StrategySeasonalWeighted:
		preds = forecastSeasonalWeighted(req.HistoricalSamples, req.TargetDate, req.HorizonDays)
	case StrategyTrend:
		preds = forecastTrend(req.HistoricalSamples, req.TargetDate, req.HorizonDays)
	case StrategyMovingAverage:
		preds = forecastMovingAverage(req.HistoricalSamples, req.TargetDate, req.HorizonDays)
	case StrategyInsufficient:
		return nil, &InsufficientDataError{Availability: avail}
	default:
		return nil, fmt.Errorf("unhandled strategy %d", decision.Strategy)
	}

	return &Result{
		Predictions: preds,
		Metadata: Metadata{
			Strategy:         decision.Strategy,
			StrategyName:     decision.Name,
			Confidence:       decision.Confidence,
			Accuracy:         decision.Accuracy,
			Warning:          decision.Warning,
			DataAvailability: avail,
		},
	}, nil
}

// ForecastWithWeather trains a regression from historical (weather, output)
// day pairs and applies it to the forecast-horizon weather. This path is
// chosen by the caller's use case (solar generation, indoor temperature) and
// bypasses the strategy table entirely. Every horizon day must have a
// forecast weather aggregate or the call fails.
func (e *Engine) ForecastWithWeather(ctx context.Context, req Request) (*Result, error) {
	if req.HorizonDays <= 0 {
		return nil, &InvalidRangeError{HorizonDays: req.HorizonDays}
	}

	avail := Assess(req.TargetDate, req.HorizonDays, req.HistoricalSamples)
	pairs := pairTrainingDays(dailyTotals(req.HistoricalSamples), req.HistoricalWeather)
	model, err := TrainWeatherRegression(pairs)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "trained weather regression",
		slog.Int("trainingDays", model.TrainingDays),
		slog.Float64("rSquared", model.RSquared),
	)

	preds := make([]types.Prediction, 0, req.HorizonDays)
	for i := 0; i < req.HorizonDays; i++ {
		date := dateKey(req.TargetDate.AddDate(0, 0, i))
		w, ok := req.ForecastWeather[date]
		if !ok {
			return nil, fmt.Errorf("missing forecast weather for %s", date)
		}
		preds = append(preds, types.Prediction{
			Date:  date,
			Value: model.Predict(w),
		})
	}

	return &Result{
		Predictions: preds,
		Metadata: Metadata{
			Strategy:         StrategyWeatherRegression,
			StrategyName:     StrategyWeatherRegression.String(),
			Confidence:       int(math.Round(model.RSquared * 100)),
			Accuracy:         "model-fit",
			DataAvailability: avail,
			RegressionModel:  model,
		},
	}, nil
}

// pairTrainingDays joins daily totals with same-date weather aggregates.
// Days missing either side are skipped.
func pairTrainingDays(totals []DailyTotal, weather map[string]types.DailyWeatherAggregate) []TrainingPair {
	pairs := make([]TrainingPair, 0, len(totals))
	for _, t := range totals {
		w, ok := weather[t.Date]
		if !ok {
			continue
		}
		pairs = append(pairs, TrainingPair{Weather: w, Output: t.Total})
	}
	return pairs
}
