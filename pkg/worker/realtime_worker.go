package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/caltrain-transit/railfeed/pkg/config"
	"github.com/caltrain-transit/railfeed/pkg/errs"
	"github.com/caltrain-transit/railfeed/pkg/gtfsrt"
	"github.com/caltrain-transit/railfeed/pkg/kvstore"
	"github.com/caltrain-transit/railfeed/pkg/realtime"
)

// RealtimeWorker fetches the three GTFS-RT feeds under a shared deadline,
// merges them, and republishes realtime:status. If any one of the three
// fails to fetch or decode, the cycle aborts without publishing.
type RealtimeWorker struct {
	Store      kvstore.Store
	HTTPClient *http.Client
	Sources    config.Sources
	APIKey     string
	Realtime   config.Realtime

	// Dedup records the last published feed timestamp. It is write-only:
	// nothing in this process ever reads the marker back, so it has no
	// in-process behavioral effect today. A nil Dedup is a valid no-op.
	Dedup *cache.Cache[string]
}

type feedFetch struct {
	kind string
	feed *gtfs.FeedMessage
	err  error
}

// Run performs one fetch-merge-publish cycle.
func (w *RealtimeWorker) Run(ctx context.Context) error {
	budget, err := config.ParseISO8601(w.Realtime.FetchBudget)
	if err != nil {
		return errs.New(errs.KindConfig, "RealtimeWorker.Run", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	sources := []struct {
		kind string
		url  string
	}{
		{"tripUpdates", w.Sources.TripUpdatesURL},
		{"vehiclePositions", w.Sources.VehiclePosURL},
		{"alerts", w.Sources.AlertsURL},
	}

	p := pool.NewWithResults[feedFetch]()
	p.WithMaxGoroutines(len(sources))

	for _, s := range sources {
		s := s
		p.Go(func() feedFetch {
			body, err := fetch(fetchCtx, w.HTTPClient, s.url, w.Sources.APIKeyParam, w.APIKey)
			if err != nil {
				return feedFetch{kind: s.kind, err: err}
			}
			feed, err := gtfsrt.Decode(body)
			if err != nil {
				return feedFetch{kind: s.kind, err: err}
			}
			return feedFetch{kind: s.kind, feed: feed}
		})
	}

	var tripUpdates, vehiclePositions, alerts *gtfs.FeedMessage
	for _, result := range p.Wait() {
		if result.err != nil {
			return errs.New(errs.KindUpstream, "RealtimeWorker.Run", result.err)
		}
		switch result.kind {
		case "tripUpdates":
			tripUpdates = result.feed
		case "vehiclePositions":
			vehiclePositions = result.feed
		case "alerts":
			alerts = result.feed
		}
	}

	status := realtime.Merge(tripUpdates, vehiclePositions, alerts)

	encoded, err := json.Marshal(status)
	if err != nil {
		return errs.New(errs.KindDecode, "RealtimeWorker.Run", err)
	}

	ttl, err := config.ParseISO8601(w.Realtime.TTL)
	if err != nil {
		return errs.New(errs.KindConfig, "RealtimeWorker.Run", err)
	}

	opts := kvstore.PutOptions{
		TTL:      ttl,
		Metadata: map[string]string{"t": strconv.FormatInt(status.Timestamp, 10)},
	}
	if err := w.Store.Put(ctx, kvstore.KeyRealtimeStatus, encoded, opts); err != nil {
		return errs.New(errs.KindStore, "RealtimeWorker.Run", err)
	}

	w.markPublished(ctx, status.Timestamp)

	log.Info().
		Int64("timestamp", status.Timestamp).
		Int("trips", len(status.ByTrip)).
		Int("alerts", len(status.Alerts)).
		Msg("published realtime status")

	return nil
}

func (w *RealtimeWorker) markPublished(ctx context.Context, timestamp int64) {
	if w.Dedup == nil {
		return
	}
	_ = w.Dedup.Set(ctx, "realtime:lastPublished", formatTimestamp(timestamp))
}

func formatTimestamp(t int64) string {
	return time.Unix(t, 0).UTC().Format(time.RFC3339)
}
