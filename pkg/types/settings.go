package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 3

// Settings represents the configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// Site coordinates used to fetch weather for regression forecasts.
	// Both zero means no location is configured and the weather path is skipped.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Weather Provider
	WeatherProvider string `json:"weatherProvider"`

	// Forecast Settings
	// Horizon used when a request doesn't specify one (in days)
	DefaultHorizonDays int `json:"defaultHorizonDays"`
	// How much history to load per forecast (in days). The seasonal strategies
	// want at least a full year plus some slack.
	MaxHistoryDays int `json:"maxHistoryDays"`
	// Skip the weather regression path even when coordinates are set
	DisableWeatherRegression bool `json:"disableWeatherRegression"`
}

// HasLocation returns true if the site has coordinates configured.
func (s Settings) HasLocation() bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.DefaultHorizonDays == 0 {
				s.DefaultHorizonDays = 7
				migrated = true
			}
		case 2:
			// version 2: add MaxHistoryDays
			if s.MaxHistoryDays == 0 {
				s.MaxHistoryDays = 400
				migrated = true
			}
		case 3:
			// version 3: add weather provider
			if s.WeatherProvider == "" {
				s.WeatherProvider = "openmeteo"
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
