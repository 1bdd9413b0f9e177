package forecast

import (
	"math"
	"time"

	"github.com/ecosphere/forecast/pkg/types"
)

// maxMissingPeriods caps the gap diagnostics. The list is a sample for
// operators, not an exhaustive scan result.
const maxMissingPeriods = 5

// MissingPeriod is a gap of more than a day between consecutive samples.
type MissingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// DataAvailability summarizes how much usable history exists around a target
// date. Strategy selection reads only this snapshot, never the raw samples.
type DataAvailability struct {
	HasOneYearCycle   bool            `json:"hasOneYearCycle"`
	HasLastYearData   bool            `json:"hasLastYearData"`
	HasRecent30Days   bool            `json:"hasRecent30Days"`
	HasRecent7Days    bool            `json:"hasRecent7Days"`
	CompletenessScore int             `json:"completenessScore"` // 0-100
	TotalDataPoints   int             `json:"totalDataPoints"`
	MissingPeriods    []MissingPeriod `json:"missingPeriods,omitempty"`
}

// Assess computes the availability snapshot for a forecast request. Pure
// function of its inputs, samples must be in non-decreasing timestamp order.
func Assess(targetDate time.Time, horizonDays int, samples []types.MetricSample) DataAvailability {
	lastYearStart := targetDate.AddDate(-1, 0, 0)
	a := DataAvailability{
		TotalDataPoints:   len(samples),
		HasOneYearCycle:   len(samples) >= 365*24,
		HasLastYearData:   windowCoverage(samples, lastYearStart, lastYearStart.AddDate(0, 0, horizonDays)) >= 0.5,
		HasRecent30Days:   windowCoverage(samples, targetDate.AddDate(0, 0, -30), targetDate) >= 0.5,
		HasRecent7Days:    windowCoverage(samples, targetDate.AddDate(0, 0, -7), targetDate) >= 0.5,
		CompletenessScore: completenessScore(samples),
		MissingPeriods:    missingPeriods(samples),
	}
	return a
}

// windowCoverage is the fraction of expected hourly points present in
// [start, end).
func windowCoverage(samples []types.MetricSample, start, end time.Time) float64 {
	expected := end.Sub(start).Hours()
	if expected <= 0 {
		return 0
	}
	var actual int
	for _, s := range samples {
		if !s.Timestamp.Before(start) && s.Timestamp.Before(end) {
			actual++
		}
	}
	return float64(actual) / expected
}

// completenessScore is the percentage of expected hourly samples present
// across the whole span of the series. Fewer than 2 samples scores 100, there
// is no span to judge.
func completenessScore(samples []types.MetricSample) int {
	if len(samples) < 2 {
		return 100
	}
	first := samples[0].Timestamp
	last := samples[len(samples)-1].Timestamp
	expected := int(last.Sub(first).Hours())
	if expected <= 0 {
		return 100
	}
	score := int(math.Round(float64(len(samples)) / float64(expected) * 100))
	if score > 100 {
		score = 100
	}
	return score
}

// missingPeriods records up to maxMissingPeriods gaps over 24h between
// consecutive samples, earliest first.
func missingPeriods(samples []types.MetricSample) []MissingPeriod {
	var missing []MissingPeriod
	for i := 1; i < len(samples); i++ {
		gap := samples[i].Timestamp.Sub(samples[i-1].Timestamp)
		if gap <= 24*time.Hour {
			continue
		}
		missing = append(missing, MissingPeriod{
			Start: samples[i-1].Timestamp,
			End:   samples[i].Timestamp,
			Days:  int(gap.Hours() / 24),
		})
		if len(missing) == maxMissingPeriods {
			break
		}
	}
	return missing
}
