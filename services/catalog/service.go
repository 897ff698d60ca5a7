package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gamevault-backend/lib/timezone"

	"go.opentelemetry.io/otel/codes"
)

// ErrNoCandidates aborts a run: writing a snapshot from an empty fetch
// would silently evict every entry in the catalog.
var ErrNoCandidates = errors.New("catalog fetch returned no candidates")

type Service struct {
	source CandidateSource
	store  SnapshotStore
	rec    Reconciler
	now    func() time.Time
}

func NewService(source CandidateSource, store SnapshotStore, oracle Oracle, details DetailSource) Service {
	return Service{
		source: source,
		store:  store,
		rec:    NewReconciler(oracle, details),
		now:    timezone.Now,
	}
}

type UpdateResult struct {
	Date     string   `json:"date"`
	Location string   `json:"location"`
	Stats    RunStats `json:"stats"`
}

// Update runs one full reconciliation: load the prior snapshot, fetch
// the fresh candidate batch, reconcile, and persist a new dated
// snapshot. Nothing is written unless the whole run completes.
func (s Service) Update(ctx context.Context) (UpdateResult, error) {
	ctx, span := tracer.Start(ctx, "Update")
	defer span.End()

	prior, err := s.store.LoadLatest(ctx)
	if err != nil {
		// missing or corrupt prior state degrades to first-run semantics
		slog.WarnContext(ctx, "failed to load prior snapshot, starting fresh", "err", err)
		prior = Snapshot{Exclusions: ExclusionLedger{}}
	}
	slog.InfoContext(ctx, "loaded prior snapshot",
		"date", prior.Date,
		"entries", len(prior.Entries),
		"exclusions", len(prior.Exclusions),
	)

	candidates, err := s.source.FetchCandidates(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return UpdateResult{}, fmt.Errorf("fetch candidates: %w", err)
	}
	if len(candidates) == 0 {
		span.RecordError(ErrNoCandidates)
		span.SetStatus(codes.Error, ErrNoCandidates.Error())
		return UpdateResult{}, ErrNoCandidates
	}
	slog.InfoContext(ctx, "fetched candidates", "count", len(candidates))

	entries, exclusions, stats := s.rec.Reconcile(ctx, prior, candidates)

	snapshot := Snapshot{
		Date:       timezone.DateKey(s.now()),
		Entries:    entries,
		Exclusions: exclusions,
	}
	location, err := s.store.Save(ctx, snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return UpdateResult{}, fmt.Errorf("save snapshot: %w", err)
	}

	slog.InfoContext(ctx, "catalog update complete",
		"date", snapshot.Date,
		"entries", stats.Entries,
		"exclusions", stats.Exclusions,
		"new_exclusions", stats.NewExclusions,
		"moderation_calls", stats.ModerationCalls,
		"moderation_reused", stats.ModerationReused,
		"location", location,
	)
	return UpdateResult{
		Date:     snapshot.Date,
		Location: location,
		Stats:    stats,
	}, nil
}
