package schedule

import (
	"fmt"
	"time"
)

// IsServiceActive reports whether serviceID runs on date (a YYYYMMDD
// integer). The base calendar entry is evaluated first, then any dated
// exception for that exact date overrides it - type 1 adds service, type 2
// removes it, regardless of what the base calendar said.
func IsServiceActive(sched *StaticSchedule, serviceID string, date int) bool {
	active := false

	if entry, ok := sched.Calendars.Calendars[serviceID]; ok {
		if date >= entry.Start && date <= entry.End {
			active = entry.Days[weekdayIndex(date)] == 1
		}
	}

	for _, exc := range sched.Calendars.Exceptions[serviceID] {
		if exc.Date != date {
			continue
		}
		switch exc.Type {
		case 1:
			active = true
		case 2:
			active = false
		}
	}

	return active
}

// weekdayIndex maps a YYYYMMDD date to a Monday-first weekday index, 0-6.
func weekdayIndex(date int) int {
	t, err := time.Parse("20060102", fmt.Sprintf("%08d", date))
	if err != nil {
		return 0
	}
	return (int(t.Weekday()) + 6) % 7
}
