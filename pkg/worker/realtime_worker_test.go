package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/caltrain-transit/railfeed/pkg/config"
	"github.com/caltrain-transit/railfeed/pkg/kvstore"
)

func feedServer(t *testing.T, timestamp uint64) *httptest.Server {
	t.Helper()
	msg := &gtfs.FeedMessage{Header: &gtfs.FeedHeader{Timestamp: &timestamp}}
	body, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
}

func TestRealtimeWorkerAbortsAndLeavesKVUntouchedWhenOneFeedFails(t *testing.T) {
	tripUpdates := feedServer(t, 100)
	defer tripUpdates.Close()
	vehiclePositions := feedServer(t, 90)
	defer vehiclePositions.Close()
	alertsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer alertsServer.Close()

	store := kvstore.NewMemoryStore()
	store.Put(context.Background(), kvstore.KeyRealtimeStatus, []byte(`{"stale":true}`), kvstore.PutOptions{
		Metadata: map[string]string{"t": "42"},
	})

	cfg := config.Default()
	cfg.Sources.TripUpdatesURL = tripUpdates.URL
	cfg.Sources.VehiclePosURL = vehiclePositions.URL
	cfg.Sources.AlertsURL = alertsServer.URL

	w := &RealtimeWorker{
		Store:      store,
		HTTPClient: http.DefaultClient,
		Sources:    cfg.Sources,
		Realtime:   cfg.Realtime,
	}

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error when one of three feeds fails")
	}

	value, metadata, ok, err := store.Get(context.Background(), kvstore.KeyRealtimeStatus)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected previous realtime:status to still be present")
	}
	if metadata["t"] != "42" {
		t.Errorf("metadata t = %q, want unchanged 42", metadata["t"])
	}
	if string(value) != `{"stale":true}` {
		t.Errorf("value = %s, want unchanged", value)
	}
}

func TestRealtimeWorkerFailsWhenAllFeedsFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	store := kvstore.NewMemoryStore()
	cfg := config.Default()
	cfg.Sources.TripUpdatesURL = failing.URL
	cfg.Sources.VehiclePosURL = failing.URL
	cfg.Sources.AlertsURL = failing.URL

	w := &RealtimeWorker{
		Store:      store,
		HTTPClient: http.DefaultClient,
		Sources:    cfg.Sources,
		Realtime:   cfg.Realtime,
	}

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error when all three feeds fail")
	}
}
