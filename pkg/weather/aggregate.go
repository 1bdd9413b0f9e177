package weather

import (
	"sort"

	"github.com/ecosphere/forecast/pkg/types"
)

// AggregateDaily collapses hourly observations into per-day aggregates keyed
// by UTC date: radiation is summed, temperature and cloud cover averaged, and
// daylight hours counted as hours with any shortwave radiation.
func AggregateDaily(obs []types.WeatherObservation) map[string]types.DailyWeatherAggregate {
	type accumulator struct {
		temperature float64
		cloudCover  float64
		shortwave   float64
		direct      float64
		diffuse     float64
		daylight    int
		hours       int
	}
	days := make(map[string]*accumulator)
	for _, ob := range obs {
		key := ob.Timestamp.UTC().Format("2006-01-02")
		a, ok := days[key]
		if !ok {
			a = &accumulator{}
			days[key] = a
		}
		a.temperature += ob.Temperature
		a.cloudCover += ob.CloudCover
		a.shortwave += ob.ShortwaveRadiation
		a.direct += ob.DirectRadiation
		a.diffuse += ob.DiffuseRadiation
		if ob.ShortwaveRadiation > 0 {
			a.daylight++
		}
		a.hours++
	}

	aggregates := make(map[string]types.DailyWeatherAggregate, len(days))
	for key, a := range days {
		aggregates[key] = types.DailyWeatherAggregate{
			Date:                    key,
			TotalShortwaveRadiation: a.shortwave,
			TotalDirectRadiation:    a.direct,
			TotalDiffuseRadiation:   a.diffuse,
			AvgTemperature:          a.temperature / float64(a.hours),
			AvgCloudCover:           a.cloudCover / float64(a.hours),
			DaylightHours:           a.daylight,
		}
	}
	return aggregates
}

// SortedDates returns the aggregate keys in ascending date order. Handy for
// logging and deterministic iteration.
func SortedDates(aggregates map[string]types.DailyWeatherAggregate) []string {
	dates := make([]string, 0, len(aggregates))
	for d := range aggregates {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
