package catalog

import (
	"context"
	"log/slog"
	"math"
	"time"

	"gamevault-backend/lib/timezone"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/catalog")

// Reconciler merges a fresh candidate batch against the prior
// snapshot, deciding per entry whether the previous moderation verdict
// can be reused or the oracle must be consulted again, and carries
// forward legacy entries that fell out of the current chart window.
type Reconciler struct {
	oracle  Oracle
	details DetailSource
	now     func() time.Time
}

func NewReconciler(oracle Oracle, details DetailSource) Reconciler {
	return Reconciler{
		oracle:  oracle,
		details: details,
		now:     timezone.Now,
	}
}

// Reconcile produces the next entry list and exclusion ledger. The
// returned ledger always contains every prior exclusion. Each place id
// ends up in exactly one of the two outputs.
func (r Reconciler) Reconcile(ctx context.Context, prior Snapshot, candidates []Entry) ([]Entry, ExclusionLedger, RunStats) {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()

	priorByID := make(map[string]Entry, len(prior.Entries))
	for _, e := range prior.Entries {
		priorByID[e.PlaceID] = e
	}

	next := ExclusionLedger{}
	for id, rec := range prior.Exclusions {
		next[id] = rec
	}

	var entries []Entry
	var stats RunStats
	processed := map[string]bool{}

	for _, cand := range candidates {
		if cand.PlaceID == "" {
			slog.WarnContext(ctx, "dropping candidate without place id", "name", cand.Name)
			continue
		}
		if processed[cand.PlaceID] {
			slog.WarnContext(ctx, "dropping duplicate candidate", "place_id", cand.PlaceID)
			continue
		}
		stats.Candidates++
		processed[cand.PlaceID] = true

		// the fetcher already filters excluded ids, but drop any
		// that slip through before spending an oracle call on them
		if _, excluded := prior.Exclusions[cand.PlaceID]; excluded {
			slog.DebugContext(ctx, "skipping excluded candidate", "place_id", cand.PlaceID)
			continue
		}

		raw := cand.Description
		if prev, ok := priorByID[cand.PlaceID]; ok && prev.OrigDescription == raw {
			// description unchanged since the last verdict: reuse it
			cand.Description = prev.Description
			cand.OrigDescription = raw
			cand.AIFlags = prev.AIFlags
			cand.AIReasoning = prev.AIReasoning
			if cand.Access == "" {
				cand.Access = prev.Access
			}
			cand.Normalize()
			entries = append(entries, cand)
			stats.ModerationReused++
			continue
		}

		verdict := r.oracle.Moderate(ctx, raw, cand.Name)
		stats.ModerationCalls++

		if !verdict.AppropriateForUnder13 {
			next[cand.PlaceID] = NewExclusionRecord(verdict, r.now())
			stats.NewExclusions++
			slog.InfoContext(ctx, "excluding game",
				"place_id", cand.PlaceID,
				"name", cand.Name,
				"reason", next[cand.PlaceID].Reason,
			)
			continue
		}

		cand.Description = verdict.SanitizedDescription
		cand.OrigDescription = raw
		cand.AIFlags = verdict.Flags
		cand.AIReasoning = verdict.Reasoning
		cand.Normalize()
		entries = append(entries, cand)
	}

	entries = append(entries, r.reconcileLegacy(ctx, prior, processed, next, &stats)...)

	stats.Entries = len(entries)
	stats.Exclusions = len(next)

	span.SetAttributes(
		attribute.Int("candidates", stats.Candidates),
		attribute.Int("legacy", stats.Legacy),
		attribute.Int("entries", stats.Entries),
		attribute.Int("exclusions", stats.Exclusions),
		attribute.Int("new_exclusions", stats.NewExclusions),
		attribute.Int("moderation_calls", stats.ModerationCalls),
		attribute.Int("moderation_reused", stats.ModerationReused),
	)
	return entries, next, stats
}

type pendingModeration struct {
	entry Entry
	raw   string
}

// reconcileLegacy handles prior entries absent from the candidate
// batch: still potentially active outside the current chart window, so
// they are refreshed and carried forward rather than dropped.
func (r Reconciler) reconcileLegacy(ctx context.Context, prior Snapshot, processed map[string]bool, next ExclusionLedger, stats *RunStats) []Entry {
	ctx, span := tracer.Start(ctx, "reconcileLegacy")
	defer span.End()

	var keep []Entry
	var drifted []pendingModeration

	for _, entry := range prior.Entries {
		if entry.PlaceID == "" || processed[entry.PlaceID] {
			continue
		}
		if _, excluded := next[entry.PlaceID]; excluded {
			continue
		}
		stats.Legacy++

		if entry.UniverseID == 0 {
			slog.WarnContext(ctx, "legacy entry has no universe id, carrying forward unchanged",
				"place_id", entry.PlaceID, "name", entry.Name)
			entry.Normalize()
			keep = append(keep, entry)
			continue
		}

		live, err := r.details.LiveStats(ctx, entry.UniverseID)
		if err != nil {
			slog.WarnContext(ctx, "live stats refresh failed, keeping previous values",
				"place_id", entry.PlaceID, "universe_id", entry.UniverseID, "err", err)
			entry.Normalize()
			keep = append(keep, entry)
			continue
		}

		entry.PlayerCount = live.PlayerCount
		total := live.UpVotes + live.DownVotes
		entry.TotalVotes = total
		if total > 0 {
			entry.RatingPercentage = math.Round(float64(live.UpVotes)/float64(total)*1000) / 10
		}

		if live.Description == "" || live.Description == entry.OrigDescription {
			entry.Normalize()
			keep = append(keep, entry)
			continue
		}

		slog.DebugContext(ctx, "legacy description drifted",
			"place_id", entry.PlaceID,
			"similarity", matchr.JaroWinkler(entry.OrigDescription, live.Description, false),
		)
		drifted = append(drifted, pendingModeration{entry: entry, raw: live.Description})
	}

	// moderation runs as a second pass so a failing stats refresh
	// never interleaves with moderation decisions
	for _, p := range drifted {
		entry := p.entry
		verdict := r.oracle.Moderate(ctx, p.raw, entry.Name)
		stats.ModerationCalls++

		if !verdict.AppropriateForUnder13 {
			next[entry.PlaceID] = NewExclusionRecord(verdict, r.now())
			stats.NewExclusions++
			slog.InfoContext(ctx, "excluding legacy game",
				"place_id", entry.PlaceID,
				"name", entry.Name,
				"reason", next[entry.PlaceID].Reason,
			)
			continue
		}

		entry.Description = verdict.SanitizedDescription
		entry.OrigDescription = p.raw
		entry.AIFlags = verdict.Flags
		entry.AIReasoning = verdict.Reasoning
		entry.Normalize()
		keep = append(keep, entry)
	}

	return keep
}
