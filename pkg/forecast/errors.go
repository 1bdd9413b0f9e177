package forecast

import "fmt"

// InsufficientDataError is returned when the history is too sparse for any
// strategy, fewer than 7 usable days. Callers should treat it as terminal for
// the request rather than retrying.
type InsufficientDataError struct {
	Availability DataAvailability
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data to forecast: %d points, fewer than 7 usable days", e.Availability.TotalDataPoints)
}

// InvalidRangeError is returned when the requested horizon is not a positive
// number of days. The HTTP layer validates 1-30 before calling the engine,
// this exists so a bad caller still can't produce an empty forecast.
type InvalidRangeError struct {
	HorizonDays int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid forecast horizon: %d days", e.HorizonDays)
}

// RegressionUndefinedError is returned when the weather regression path is
// invoked with fewer than 2 paired training days.
type RegressionUndefinedError struct {
	TrainingDays int
}

func (e *RegressionUndefinedError) Error() string {
	return fmt.Sprintf("weather regression undefined: %d paired training days, need at least 2", e.TrainingDays)
}
