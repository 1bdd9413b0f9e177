package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/storage"
	"github.com/ecosphere/forecast/pkg/types"
)

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	days := 400
	lflag.JSON(&days, "seed-days", days, "How many days of history to generate")
	lflag.Configure()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding demo data", "days", days)

	// Use a new random source
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	// Simulation state
	const (
		BaseLoadKWH  = 0.35 // fridge, standby, router
		BreakfastKWH = 0.8
		EveningKWH   = 1.6
		SolarPeakKWH = 3.2 // one hour at a clear summer noon
		IndoorMeanC  = 21.0
		OutageChance = 0.03
	)

	demo := types.Site{ID: types.SiteIDNone, Name: "Demo Home", CreatedAt: time.Now().UTC()}
	if _, err := s.GetSite(ctx, types.SiteIDNone); errors.Is(err, storage.ErrSiteNotFound) {
		if err := s.CreateSite(ctx, types.SiteIDNone, demo); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed site", "error", err)
			os.Exit(1)
		}
	} else if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to check site", "error", err)
		os.Exit(1)
	}

	// A located site so the weather regression path has something to work with
	settings := types.Settings{
		Latitude:           52.52,
		Longitude:          13.405,
		WeatherProvider:    "openmeteo",
		DefaultHorizonDays: 7,
		MaxHistoryDays:     400,
	}
	if err := s.SetSettings(ctx, types.SiteIDNone, settings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed settings", "error", err)
		os.Exit(1)
	}

	var consumption, generation, temperature []types.MetricSample
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		if rng.Float64() < OutageChance {
			// the whole day is missing, like a real export gap
			continue
		}

		// 1 at the summer solstice, -1 in midwinter
		season := math.Cos(2 * math.Pi * (float64(day.YearDay()) - 172) / 365)
		// per-day cloudiness
		cloudFactor := 0.35 + 0.65*rng.Float64()

		for hour := 0; hour < 24; hour++ {
			t := day.Add(time.Duration(hour) * time.Hour)

			// Household load with breakfast and evening peaks, higher in winter
			load := BaseLoadKWH * (1 + 0.3*(1-season)/2)
			if hour >= 7 && hour < 9 {
				load += BreakfastKWH
			} else if hour >= 18 && hour < 22 {
				load += EveningKWH
			}
			load += rng.Float64() * 0.15
			consumption = append(consumption, types.MetricSample{Timestamp: t, Value: load})

			// Solar (bell curve around 13:00, dark outside daylight)
			sun := 0.0
			if hour > 6 && hour < 19 {
				dist := float64(hour) - 13.0
				sun = SolarPeakKWH * math.Exp(-(dist*dist)/12.0)
				sun *= (0.55 + 0.45*season) * cloudFactor
			}
			generation = append(generation, types.MetricSample{Timestamp: t, Value: sun})
		}

		// one synthetic indoor reading per day, like a collapsed thermal export
		temperature = append(temperature, types.MetricSample{
			Timestamp: day.Add(12 * time.Hour),
			Value:     IndoorMeanC + 1.5*season + (rng.Float64() - 0.5),
		})
	}

	seed := func(kind types.MetricKind, samples []types.MetricSample) {
		const batch = 1000
		for i := 0; i < len(samples); i += batch {
			j := min(i+batch, len(samples))
			if err := s.UpsertSamples(ctx, types.SiteIDNone, kind, samples[i:j], types.CurrentSampleHistoryVersion); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to seed samples", "kind", string(kind), "error", err)
				os.Exit(1)
			}
		}
		fmt.Printf("Seeded %d %s samples between %s and %s\n",
			len(samples), kind, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	seed(types.MetricConsumption, consumption)
	seed(types.MetricGeneration, generation)
	seed(types.MetricTemperature, temperature)

	log.Ctx(ctx).InfoContext(ctx, "seeded demo data successfully")
}
