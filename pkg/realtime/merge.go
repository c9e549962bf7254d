package realtime

import (
	"math"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Merge implements the deterministic realtime-merge algorithm: join trip
// updates with vehicle positions, fold in service alerts, and stamp the
// whole thing with the newest of the three feed timestamps. Any of the
// three feeds may be nil (a feed fetch that failed upstream still lets the
// other two merge, callers decide whether that's acceptable).
func Merge(tripUpdates, vehiclePositions, alerts *gtfs.FeedMessage) Status {
	positions := collectPositions(vehiclePositions)
	byTrip := collectTripStatuses(tripUpdates)

	for tripID, status := range byTrip {
		if pos, ok := positions[tripID]; ok {
			p := pos
			status.Position = &p
			byTrip[tripID] = status
		}
	}

	return Status{
		Timestamp: maxTimestamp(tripUpdates, vehiclePositions, alerts),
		ByTrip:    byTrip,
		Alerts:    collectAlerts(alerts),
	}
}

func collectTripStatuses(feed *gtfs.FeedMessage) map[string]TripStatus {
	byTrip := map[string]TripStatus{}
	if feed == nil {
		return byTrip
	}

	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}

		tripID := tu.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}

		byTrip[tripID] = buildTripStatus(tu)
	}

	return byTrip
}

func buildTripStatus(tu *gtfs.TripUpdate) TripStatus {
	status := TripStatus{State: StateInTransit}

	stopUpdates := tu.GetStopTimeUpdate()

	// Stop context: the first stop_time_update that carries a stop id.
	for _, stu := range stopUpdates {
		if stu.GetStopId() != "" {
			status.Stop = stu.GetStopId()
			break
		}
	}

	var (
		delay     int64
		hasDelay  bool
		predicted int64
		hasTime   bool
	)

	for _, stu := range stopUpdates {
		if !hasDelay {
			if d, ok := nonZeroDelay(stu.GetDeparture(), stu.GetArrival()); ok {
				delay = d
				hasDelay = true
				if stu.GetStopId() != "" {
					status.Stop = stu.GetStopId()
				}
			}
		}

		if !hasTime {
			if t, ok := nonZeroTime(stu.GetDeparture(), stu.GetArrival()); ok {
				predicted = t
				hasTime = true
			}
		}

		if hasDelay && hasTime {
			break
		}
	}

	if !hasDelay {
		if d := tu.GetDelay(); d != 0 {
			delay = int64(d)
			hasDelay = true
		}
	}

	if hasDelay {
		status.Delay = &delay
	}
	if hasTime {
		status.Time = &predicted
	}

	return status
}

// nonZeroDelay returns the first non-zero delay from departure, else
// arrival. Zero is "no signal", not "on time".
func nonZeroDelay(departure, arrival *gtfs.TripUpdate_StopTimeEvent) (int64, bool) {
	if departure != nil && departure.GetDelay() != 0 {
		return int64(departure.GetDelay()), true
	}
	if arrival != nil && arrival.GetDelay() != 0 {
		return int64(arrival.GetDelay()), true
	}
	return 0, false
}

func nonZeroTime(departure, arrival *gtfs.TripUpdate_StopTimeEvent) (int64, bool) {
	if departure != nil && departure.GetTime() != 0 {
		return departure.GetTime(), true
	}
	if arrival != nil && arrival.GetTime() != 0 {
		return arrival.GetTime(), true
	}
	return 0, false
}

func collectPositions(feed *gtfs.FeedMessage) map[string]Position {
	positions := map[string]Position{}
	if feed == nil {
		return positions
	}

	for _, entity := range feed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil {
			continue
		}

		tripID := vp.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}

		pos := vp.GetPosition()
		if pos == nil {
			continue
		}

		lat, lon := float64(pos.GetLatitude()), float64(pos.GetLongitude())
		if !validCoordinate(lat, lon) {
			continue
		}

		p := Position{Lat: quantize(lat), Lon: quantize(lon)}
		if b := float64(pos.GetBearing()); b != 0 {
			p.Bearing = &b
		}
		if sp := float64(pos.GetSpeed()); sp != 0 {
			p.Speed = &sp
		}

		positions[tripID] = p
	}

	return positions
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// quantize rounds to five decimal places, half away from zero - exactly
// what math.Round already does.
func quantize(v float64) float64 {
	return math.Round(v*100000) / 100000
}

func collectAlerts(feed *gtfs.FeedMessage) []Alert {
	alerts := []Alert{}
	if feed == nil {
		return alerts
	}

	for _, entity := range feed.GetEntity() {
		a := entity.GetAlert()
		if a == nil {
			continue
		}
		alerts = append(alerts, buildAlert(a))
	}

	return alerts
}

func buildAlert(a *gtfs.Alert) Alert {
	alert := Alert{
		Header:      englishTranslation(a.GetHeaderText()),
		Description: englishTranslation(a.GetDescriptionText()),
	}

	if a.Cause != nil {
		c := a.GetCause().String()
		alert.Cause = &c
	}
	if a.Effect != nil {
		e := a.GetEffect().String()
		alert.Effect = &e
	}

	for _, ie := range a.GetInformedEntity() {
		if stopID := ie.GetStopId(); stopID != "" {
			alert.Stops = append(alert.Stops, stopID)
		}
		if tripID := ie.GetTrip().GetTripId(); tripID != "" {
			alert.Trips = append(alert.Trips, tripID)
		}
	}

	if periods := a.GetActivePeriod(); len(periods) > 0 {
		first := periods[0]
		if first.Start != nil {
			s := int64(first.GetStart())
			alert.ActiveStart = &s
		}
		if first.End != nil {
			e := int64(first.GetEnd())
			alert.ActiveEnd = &e
		}
	}

	return alert
}

func englishTranslation(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}
	for _, t := range ts.GetTranslation() {
		if t.GetLanguage() == "en" {
			return t.GetText()
		}
	}
	return ""
}

func maxTimestamp(feeds ...*gtfs.FeedMessage) int64 {
	var max int64
	for _, feed := range feeds {
		if ts := int64(feed.GetHeader().GetTimestamp()); ts > max {
			max = ts
		}
	}
	return max
}
