package realtime

import (
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

func i32(v int32) *int32 { return &v }
func i64(v int64) *int64 { return &v }
func u64(v uint64) *uint64 { return &v }
func str(v string) *string { return &v }
func f32(v float32) *float32 { return &v }

func feedWith(timestamp uint64, entities ...*gtfs.FeedEntity) *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{Timestamp: &timestamp},
		Entity: entities,
	}
}

func TestMergeDelaySelection(t *testing.T) {
	tripUpdates := feedWith(100, &gtfs.FeedEntity{
		Id: str("e1"),
		TripUpdate: &gtfs.TripUpdate{
			Trip:  &gtfs.TripDescriptor{TripId: str("T1")},
			Delay: i32(120),
			StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
				{StopId: str("S1"), Departure: &gtfs.TripUpdate_StopTimeEvent{Delay: i32(0)}},
				{StopId: str("S2"), Departure: &gtfs.TripUpdate_StopTimeEvent{Delay: i32(600)}},
			},
		},
	})

	status := Merge(tripUpdates, nil, nil)

	got, ok := status.ByTrip["T1"]
	if !ok {
		t.Fatal("expected T1 in byTrip")
	}
	if got.Delay == nil || *got.Delay != 600 {
		t.Errorf("delay = %v, want 600", got.Delay)
	}
	if got.Stop != "S2" {
		t.Errorf("stop = %q, want S2", got.Stop)
	}
}

func TestMergeDelayFallbackToTripLevel(t *testing.T) {
	tripUpdates := feedWith(100, &gtfs.FeedEntity{
		TripUpdate: &gtfs.TripUpdate{
			Trip:  &gtfs.TripDescriptor{TripId: str("T1")},
			Delay: i32(-120),
			StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
				{StopId: str("S3"), Arrival: &gtfs.TripUpdate_StopTimeEvent{Delay: i32(0)}},
			},
		},
	})

	status := Merge(tripUpdates, nil, nil)

	got := status.ByTrip["T1"]
	if got.Delay == nil || *got.Delay != -120 {
		t.Errorf("delay = %v, want -120", got.Delay)
	}
	if got.Stop != "S3" {
		t.Errorf("stop = %q, want S3", got.Stop)
	}
}

func TestMergeNoSignalAtAllOmitsDelay(t *testing.T) {
	tripUpdates := feedWith(100, &gtfs.FeedEntity{
		TripUpdate: &gtfs.TripUpdate{
			Trip:  &gtfs.TripDescriptor{TripId: str("T1")},
			Delay: i32(0),
			StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
				{StopId: str("S1"), Departure: &gtfs.TripUpdate_StopTimeEvent{Delay: i32(0)}},
			},
		},
	})

	status := Merge(tripUpdates, nil, nil)

	got := status.ByTrip["T1"]
	if got.Delay != nil {
		t.Errorf("delay = %v, want nil (no signal)", *got.Delay)
	}
}

func TestMergePositionQuantizationAndJoin(t *testing.T) {
	tripUpdates := feedWith(100, &gtfs.FeedEntity{
		TripUpdate: &gtfs.TripUpdate{
			Trip: &gtfs.TripDescriptor{TripId: str("T1")},
			StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
				{StopId: str("S1"), Departure: &gtfs.TripUpdate_StopTimeEvent{Delay: i32(600)}},
			},
		},
	})
	vehiclePositions := feedWith(90, &gtfs.FeedEntity{
		Vehicle: &gtfs.VehiclePosition{
			Trip: &gtfs.TripDescriptor{TripId: str("T1")},
			Position: &gtfs.Position{
				Latitude:  f32(37.123456),
				Longitude: f32(-122.654321),
			},
		},
	})

	status := Merge(tripUpdates, vehiclePositions, nil)

	got := status.ByTrip["T1"]
	if got.Position == nil {
		t.Fatal("expected position to be attached")
	}
	if got.Position.Lat != 37.12346 {
		t.Errorf("lat = %v, want 37.12346", got.Position.Lat)
	}
	if got.Position.Lon != -122.65432 {
		t.Errorf("lon = %v, want -122.65432", got.Position.Lon)
	}
	if status.Timestamp != 100 {
		t.Errorf("timestamp = %d, want max(100,90)=100", status.Timestamp)
	}
}

func TestMergeInvalidPositionDiscarded(t *testing.T) {
	tripUpdates := feedWith(1, &gtfs.FeedEntity{
		TripUpdate: &gtfs.TripUpdate{Trip: &gtfs.TripDescriptor{TripId: str("T1")}},
	})
	vehiclePositions := feedWith(1, &gtfs.FeedEntity{
		Vehicle: &gtfs.VehiclePosition{
			Trip:     &gtfs.TripDescriptor{TripId: str("T1")},
			Position: &gtfs.Position{Latitude: f32(200), Longitude: f32(0)},
		},
	})

	status := Merge(tripUpdates, vehiclePositions, nil)
	if got := status.ByTrip["T1"]; got.Position != nil {
		t.Errorf("expected invalid position to be discarded, got %+v", *got.Position)
	}
}

func TestMergeAlertEnglishTranslation(t *testing.T) {
	alerts := feedWith(50, &gtfs.FeedEntity{
		Alert: &gtfs.Alert{
			HeaderText: &gtfs.TranslatedString{Translation: []*gtfs.TranslatedString_Translation{
				{Text: str("Retard"), Language: str("fr")},
				{Text: str("Delay"), Language: str("en")},
			}},
			DescriptionText: &gtfs.TranslatedString{Translation: []*gtfs.TranslatedString_Translation{
				{Text: str("Service delayed"), Language: str("en")},
			}},
			InformedEntity: []*gtfs.EntitySelector{
				{StopId: str("S1")},
				{Trip: &gtfs.TripDescriptor{TripId: str("T1")}},
			},
			ActivePeriod: []*gtfs.TimeRange{
				{Start: u64(1000), End: u64(2000)},
			},
		},
	})

	status := Merge(nil, nil, alerts)

	if len(status.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(status.Alerts))
	}
	a := status.Alerts[0]
	if a.Header != "Delay" {
		t.Errorf("header = %q, want Delay", a.Header)
	}
	if a.Description != "Service delayed" {
		t.Errorf("description = %q", a.Description)
	}
	if len(a.Stops) != 1 || a.Stops[0] != "S1" {
		t.Errorf("stops = %v", a.Stops)
	}
	if len(a.Trips) != 1 || a.Trips[0] != "T1" {
		t.Errorf("trips = %v", a.Trips)
	}
	if a.ActiveStart == nil || *a.ActiveStart != 1000 {
		t.Errorf("activeStart = %v", a.ActiveStart)
	}
	if a.ActiveEnd == nil || *a.ActiveEnd != 2000 {
		t.Errorf("activeEnd = %v", a.ActiveEnd)
	}
}

func TestMergeFeedTimestampIsMaxOfThree(t *testing.T) {
	tripUpdates := feedWith(100)
	vehiclePositions := feedWith(300)
	alerts := feedWith(200)

	status := Merge(tripUpdates, vehiclePositions, alerts)
	if status.Timestamp != 300 {
		t.Errorf("timestamp = %d, want 300", status.Timestamp)
	}
}
