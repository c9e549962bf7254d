// Package config loads the pipeline's non-secret configuration from a YAML
// file. The one secret (the upstream API key) is never part of this file -
// it is read separately from the environment by pkg/secret.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/senseyeio/duration"
	"gopkg.in/yaml.v3"
)

// Config is the full set of non-secret inputs the pipeline needs.
type Config struct {
	Sources   Sources   `yaml:"sources"`
	Redis     Redis     `yaml:"redis"`
	Schedule  Schedule  `yaml:"schedule"`
	Realtime  Realtime  `yaml:"realtime"`
	Validator Validator `yaml:"validator"`
}

type Sources struct {
	ArchiveURL      string `yaml:"archiveUrl"`
	TripUpdatesURL  string `yaml:"tripUpdatesUrl"`
	VehiclePosURL   string `yaml:"vehiclePositionsUrl"`
	AlertsURL       string `yaml:"alertsUrl"`
	APIKeyParam     string `yaml:"apiKeyParam"`
}

type Redis struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
}

// Schedule holds the daily static-schedule job's configuration.
type Schedule struct {
	Cadence           string   `yaml:"cadence"` // ISO-8601, e.g. "P1D"
	SchemaVersion     int      `yaml:"schemaVersion"`
	StationCleanTerms []string `yaml:"stationCleanTerms"`
}

// Realtime holds the realtime aggregator job's configuration.
type Realtime struct {
	Cadence      string `yaml:"cadence"`      // ISO-8601, e.g. "PT2M"
	FetchBudget  string `yaml:"fetchBudget"`  // ISO-8601, e.g. "PT10S"
	TTL          string `yaml:"ttl"`          // ISO-8601, e.g. "PT180S"
}

type Validator struct {
	MinEndDate   int `yaml:"minEndDate"`
	MinStations  int `yaml:"minStations"`
	MinTrips     int `yaml:"minTrips"`
	MinPatterns  int `yaml:"minPatterns"`
}

// Default returns the configuration this pipeline ships with when no file
// override is present; every numeric/duration value here matches the
// original spec's design cadences and validator thresholds.
func Default() Config {
	return Config{
		Sources: Sources{
			APIKeyParam: "key",
		},
		Redis: Redis{
			Address:  "localhost:6379",
			Database: 0,
		},
		Schedule: Schedule{
			Cadence:           "P1D",
			SchemaVersion:     1,
			StationCleanTerms: []string{" Caltrain Station"},
		},
		Realtime: Realtime{
			Cadence:     "PT2M",
			FetchBudget: "PT10S",
			TTL:         "PT180S",
		},
		Validator: Validator{
			MinEndDate:  20260101,
			MinStations: 10,
			MinTrips:    10,
			MinPatterns: 2,
		},
	}
}

// Load reads a YAML config file at path, applying it on top of Default().
// A missing file is not an error - the defaults stand alone.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// ParseISO8601 parses an ISO-8601 duration string (as used throughout this
// config) into a time.Duration.
func ParseISO8601(s string) (time.Duration, error) {
	d, err := duration.ParseISO8601(s)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", s, err)
	}

	// Anchor the shift at the Unix epoch purely to turn the calendar-aware
	// duration.Duration into a concrete time.Duration; none of our cadences
	// use month/year components so this is exact.
	epoch := time.Unix(0, 0).UTC()
	return d.Shift(epoch).Sub(epoch), nil
}
