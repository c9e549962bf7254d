// Package realtime merges the three GTFS-RT feeds (trip updates, vehicle
// positions, service alerts) into one per-trip view and models the result
// that gets published as JSON to the realtime:status key.
package realtime

// Position is a vehicle's quantized location, bearing and speed.
type Position struct {
	Lat     float64  `json:"la"`
	Lon     float64  `json:"lo"`
	Bearing *float64 `json:"b,omitempty"`
	Speed   *float64 `json:"sp,omitempty"`
}

// TripStatus is the merged per-trip realtime view. Delay, Time and Stop are
// only populated when the feeds carried an actual signal; zero is never
// used as a stand-in for "absent" here, a *int64/empty string is.
type TripStatus struct {
	Delay    *int64    `json:"d,omitempty"`
	Time     *int64    `json:"t,omitempty"`
	Stop     string    `json:"s,omitempty"`
	State    int       `json:"st"`
	Position *Position `json:"p,omitempty"`
}

// Progress states, numbered to match GTFS-RT's VehiclePosition_VehicleStopStatus.
const (
	StateIncoming  = 0
	StateStopped   = 1
	StateInTransit = 2
)

// Alert is one service alert, with only its English translation carried.
type Alert struct {
	Header      string  `json:"h"`
	Description string  `json:"d"`
	Cause       *string `json:"c,omitempty"`
	Effect      *string `json:"e,omitempty"`
	Stops       []string `json:"s,omitempty"`
	Trips       []string `json:"tr,omitempty"`
	ActiveStart *int64  `json:"st,omitempty"`
	ActiveEnd   *int64  `json:"en,omitempty"`
}

// Status is the full realtime:status payload.
type Status struct {
	Timestamp int64                 `json:"t"`
	ByTrip    map[string]TripStatus `json:"byTrip"`
	Alerts    []Alert               `json:"a"`
}
