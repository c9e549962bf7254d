package worker

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/caltrain-transit/railfeed/pkg/config"
	"github.com/caltrain-transit/railfeed/pkg/errs"
	"github.com/caltrain-transit/railfeed/pkg/kvstore"
	"github.com/caltrain-transit/railfeed/pkg/schedule"
)

// ScheduleWorker fetches the GTFS archive, builds and validates the
// canonical schedule, and publishes it only when its content has actually
// changed from what's already stored.
type ScheduleWorker struct {
	Store      kvstore.Store
	HTTPClient *http.Client
	Sources    config.Sources
	APIKey     string
	Schedule   config.Schedule
	Validator  config.Validator
}

// Run performs one fetch-build-validate-publish cycle.
func (w *ScheduleWorker) Run(ctx context.Context) error {
	body, err := fetch(ctx, w.HTTPClient, w.Sources.ArchiveURL, w.Sources.APIKeyParam, w.APIKey)
	if err != nil {
		return err
	}

	built, err := schedule.Build(body, w.Schedule)
	if err != nil {
		return err
	}

	if violations := schedule.Validate(built, w.Validator); len(violations) > 0 {
		log.Error().Strs("violations", violations).Msg("built schedule failed validation, keeping previous snapshot")
		return errs.New(errs.KindValidation, "ScheduleWorker.Run", &validationError{violations: violations})
	}

	previous := w.previousMeta(ctx)

	// Defensive copy so the before/after comparison below never risks the
	// candidate metadata aliasing whatever was decoded from the store.
	var previousCopy schedule.Meta
	if err := copier.CopyWithOption(&previousCopy, previous, copier.Option{DeepCopy: true}); err != nil {
		return errs.New(errs.KindStore, "ScheduleWorker.Run", err)
	}

	if previousCopy.Version == built.Meta.Version {
		log.Info().Str("version", built.Meta.Version).Msg("schedule unchanged, skipping publish")
		return nil
	}

	encoded, err := json.Marshal(built)
	if err != nil {
		return errs.New(errs.KindDecode, "ScheduleWorker.Run", err)
	}

	if err := w.Store.Put(ctx, kvstore.KeyScheduleData, encoded, kvstore.PutOptions{}); err != nil {
		return errs.New(errs.KindStore, "ScheduleWorker.Run", err)
	}

	metaEncoded, err := json.Marshal(built.Meta)
	if err != nil {
		return errs.New(errs.KindDecode, "ScheduleWorker.Run", err)
	}
	if err := w.Store.Put(ctx, kvstore.KeyScheduleMeta, metaEncoded, kvstore.PutOptions{}); err != nil {
		return errs.New(errs.KindStore, "ScheduleWorker.Run", err)
	}

	log.Info().
		Str("previousVersion", previousCopy.Version).
		Str("version", built.Meta.Version).
		Int("stations", len(built.Stations)).
		Int("trips", len(built.Trips)).
		Msg("published new schedule")

	return nil
}

func (w *ScheduleWorker) previousMeta(ctx context.Context) schedule.Meta {
	value, _, ok, err := w.Store.Get(ctx, kvstore.KeyScheduleMeta)
	if err != nil || !ok {
		return schedule.Meta{}
	}

	var meta schedule.Meta
	if err := json.Unmarshal(value, &meta); err != nil {
		return schedule.Meta{}
	}
	return meta
}

type validationError struct {
	violations []string
}

func (e *validationError) Error() string {
	if len(e.violations) == 0 {
		return "schedule failed validation"
	}
	return "schedule failed validation: " + e.violations[0]
}
