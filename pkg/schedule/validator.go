package schedule

import (
	"fmt"

	"github.com/caltrain-transit/railfeed/pkg/config"
)

// Validate checks a built StaticSchedule for structural and referential
// soundness and returns every violation found; a nil/empty result means the
// schedule is safe to publish.
func Validate(sched *StaticSchedule, cfg config.Validator) []string {
	var violations []string

	if sched.Meta.Version == "" {
		violations = append(violations, "metadata missing content version")
	}
	if sched.Meta.EndDate < cfg.MinEndDate {
		violations = append(violations, fmt.Sprintf("metadata end date %d is below minimum %d", sched.Meta.EndDate, cfg.MinEndDate))
	}
	if len(sched.Stations) < cfg.MinStations {
		violations = append(violations, fmt.Sprintf("station count %d is below minimum %d", len(sched.Stations), cfg.MinStations))
	}
	if len(sched.Trips) < cfg.MinTrips {
		violations = append(violations, fmt.Sprintf("trip count %d is below minimum %d", len(sched.Trips), cfg.MinTrips))
	}
	if len(sched.Patterns) < cfg.MinPatterns {
		violations = append(violations, fmt.Sprintf("pattern count %d is below minimum %d", len(sched.Patterns), cfg.MinPatterns))
	}

	for patternID, stations := range sched.Patterns {
		for _, stationID := range stations {
			if _, ok := sched.Stations[stationID]; !ok {
				violations = append(violations, fmt.Sprintf("pattern %s references unknown station %s", patternID, stationID))
			}
		}
	}

	for _, trip := range sched.Trips {
		stations, ok := sched.Patterns[trip.PatternID]
		if !ok {
			violations = append(violations, fmt.Sprintf("trip %s references unknown pattern %s", trip.ID, trip.PatternID))
			continue
		}
		if len(trip.StopTimes) != 2*len(stations) {
			violations = append(violations, fmt.Sprintf("trip %s has %d stop times, want %d for its pattern", trip.ID, len(trip.StopTimes), 2*len(stations)))
		}

		_, hasCalendar := sched.Calendars.Calendars[trip.ServiceID]
		_, hasExceptions := sched.Calendars.Exceptions[trip.ServiceID]
		if !hasCalendar && !hasExceptions {
			violations = append(violations, fmt.Sprintf("trip %s references unknown service %s", trip.ID, trip.ServiceID))
		}
	}

	if len(sched.StationOrder) == 0 {
		violations = append(violations, "ordered station list is empty")
	}
	for _, stationID := range sched.StationOrder {
		if _, ok := sched.Stations[stationID]; !ok {
			violations = append(violations, fmt.Sprintf("ordered station list references unknown station %s", stationID))
		}
	}

	return violations
}
