package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// parseGTFSTime converts a GTFS HH:MM:SS time-of-day into minutes past local
// midnight. GTFS allows hours >= 24 for trips that run past midnight; those
// pass straight through rather than wrapping, so a 25:10:00 departure comes
// back as 1510, not 70.
func parseGTFSTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid GTFS time %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid GTFS time %q: %w", s, err)
	}
	return hours*60 + minutes, nil
}

// parseIntField parses a CSV field that should be a plain integer,
// defaulting blank fields to 0 rather than erroring - several optional GTFS
// columns (direction_id, location_type) are routinely left empty.
func parseIntField(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func parseFloatField(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
