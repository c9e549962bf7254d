package gtfsrt

import (
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

func u64(v uint64) *uint64 { return &v }
func str(v string) *string { return &v }

func TestDecodeRoundTrip(t *testing.T) {
	original := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: str("2.0"),
			Timestamp:            u64(1735689600),
		},
		Entity: []*gtfs.FeedEntity{
			{
				Id: str("1"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{TripId: str("T1")},
				},
			},
		},
	}

	body, err := proto.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.GetHeader().GetTimestamp() != 1735689600 {
		t.Errorf("timestamp = %d, want 1735689600", decoded.GetHeader().GetTimestamp())
	}
	if len(decoded.Entity) != 1 {
		t.Fatalf("entity count = %d, want 1", len(decoded.Entity))
	}
	if decoded.Entity[0].GetTripUpdate().GetTrip().GetTripId() != "T1" {
		t.Errorf("trip id = %q, want T1", decoded.Entity[0].GetTripUpdate().GetTrip().GetTripId())
	}
}

func TestDecodeMalformedInputFails(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff, 0x07, 0x00})
	if err == nil {
		t.Fatal("expected malformed input to fail decode")
	}
	var decodeErr *DecodeError
	if !asDecodeError(err, &decodeErr) {
		t.Errorf("expected *DecodeError, got %T", err)
	}
}

func asDecodeError(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if ok {
		*target = de
	}
	return ok
}
