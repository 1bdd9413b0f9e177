package server

import (
	"encoding/json"
	"net/http"

	"github.com/ecosphere/forecast/pkg/forecast"
)

type strategyInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
	Accuracy   string `json:"accuracy"`
	Requires   string `json:"requires"`
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies := []strategyInfo{
		{
			ID:         int(forecast.StrategySeasonalSmoothing),
			Name:       forecast.StrategySeasonalSmoothing.String(),
			Confidence: 90,
			Accuracy:   "5-star",
			Requires:   "a full year of history with at least 70% completeness",
		},
		{
			ID:         int(forecast.StrategySeasonalWeighted),
			Name:       forecast.StrategySeasonalWeighted.String(),
			Confidence: 80,
			Accuracy:   "4-star",
			Requires:   "the same period last year plus the recent 30 days",
		},
		{
			ID:         int(forecast.StrategyTrend),
			Name:       forecast.StrategyTrend.String(),
			Confidence: 65,
			Accuracy:   "3-star",
			Requires:   "the recent 30 days",
		},
		{
			ID:         int(forecast.StrategyMovingAverage),
			Name:       forecast.StrategyMovingAverage.String(),
			Confidence: 50,
			Accuracy:   "2-star",
			Requires:   "the recent 7 days",
		},
		{
			ID:         int(forecast.StrategyInsufficient),
			Name:       forecast.StrategyInsufficient.String(),
			Confidence: 0,
			Accuracy:   "cannot predict",
			Requires:   "fewer than 7 recent days always lands here",
		},
		{
			ID:       int(forecast.StrategyWeatherRegression),
			Name:     forecast.StrategyWeatherRegression.String(),
			Accuracy: "model-fit",
			Requires: "a site location and at least 2 days paired with weather, confidence tracks the model fit",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(strategies); err != nil {
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
}
