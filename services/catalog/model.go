package catalog

import (
	"context"
	"time"

	"gamevault-backend/lib/textutil"
)

// Entry is one catalog item in the gameserver-details format. PlaceID
// is the primary key; UniverseID is the secondary identifier used to
// refresh live stats.
type Entry struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	OrigDescription  string   `json:"orig_description,omitempty"`
	URL              string   `json:"url,omitempty"`
	Categories       []string `json:"categories"`
	ServerFiles      []string `json:"serverFiles"`
	Game             string   `json:"game"`
	Version          string   `json:"version"`
	Stages           []string `json:"stages"`
	UniverseID       int64    `json:"universe_id"`
	PlaceID          string   `json:"place_id"`
	PlayerCount      int64    `json:"player_count"`
	RatingPercentage float64  `json:"rating_percentage"`
	TotalVotes       int64    `json:"total_votes"`
	MinimumAge       int32    `json:"minimum_age"`
	AgeDisplay       string   `json:"age_display"`
	IsSponsored      bool     `json:"is_sponsored"`
	Sort             string   `json:"roblox_sort,omitempty"`
	SortID           string   `json:"roblox_sort_id,omitempty"`
	Img              string   `json:"img,omitempty"`
	AIFlags          []string `json:"ai_flags,omitempty"`
	AIReasoning      string   `json:"ai_reasoning,omitempty"`
	Access           string   `json:"access"`
}

const AccessPublic = "public"

// Normalize back-fills fields that older snapshots may be missing.
// Every persisted entry has a non-null access.
func (e *Entry) Normalize() {
	if e.Access == "" {
		e.Access = AccessPublic
	}
}

// ModerationResult is the oracle's verdict for a single description.
// It is folded into either the entry or an exclusion record, never
// persisted standalone.
type ModerationResult struct {
	SanitizedDescription  string   `json:"sanitized_description"`
	AppropriateForUnder13 bool     `json:"is_appropriate_for_under13"`
	Flags                 []string `json:"flags"`
	Reasoning             string   `json:"reasoning"`
}

// ExclusionRecord bars one place id from the catalog.
type ExclusionRecord struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
	Flags     []string  `json:"flags,omitempty"`
	Reasoning string    `json:"reasoning,omitempty"`
}

type ExclusionLedger map[string]ExclusionRecord

func NewExclusionRecord(verdict ModerationResult, now time.Time) ExclusionRecord {
	return ExclusionRecord{
		Reason:    textutil.ReasonSlug(verdict.Flags),
		Timestamp: now,
		Flags:     verdict.Flags,
		Reasoning: verdict.Reasoning,
	}
}

// Snapshot is the unit of persistence: the full entry list and the
// full exclusion ledger for one calendar date (UTC).
type Snapshot struct {
	Date       string
	Entries    []Entry
	Exclusions ExclusionLedger
}

// RunStats summarizes one reconciliation run.
type RunStats struct {
	Candidates       int `json:"candidates"`
	Legacy           int `json:"legacy"`
	Entries          int `json:"total_entries"`
	Exclusions       int `json:"total_exclusions"`
	NewExclusions    int `json:"new_exclusions"`
	ModerationCalls  int `json:"moderation_calls"`
	ModerationReused int `json:"moderation_reused"`
}

// CandidateSource produces the fresh batch of raw, pre-moderation
// catalog entries. An empty batch means the source failed outright.
type CandidateSource interface {
	FetchCandidates(ctx context.Context) ([]Entry, error)
}

// Oracle reviews one description. Implementations must never fail:
// internal errors are converted to a permissive fallback result
// flagged "ai-error".
type Oracle interface {
	Moderate(ctx context.Context, description, name string) ModerationResult
}

// LiveStats is the per-entry detail refresh payload used by the
// legacy pass.
type LiveStats struct {
	Description string
	PlayerCount int64
	UpVotes     int64
	DownVotes   int64
}

type DetailSource interface {
	LiveStats(ctx context.Context, universeID int64) (LiveStats, error)
}

// SnapshotStore persists dated snapshots. LoadLatest returns an empty
// snapshot (not an error) when no prior snapshot exists. Save must be
// append-only across dates.
type SnapshotStore interface {
	LoadLatest(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) (string, error)
}
