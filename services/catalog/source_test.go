package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gamevault-backend/lib/scrapers/charts"

	"github.com/stretchr/testify/require"
)

func TestToEntry(t *testing.T) {
	g := charts.Game{
		UniverseID:     1000,
		PlaceID:        100,
		Name:           "Obby Paradise",
		PlayerCount:    4200,
		LikeRatio:      0.925,
		TotalUpVotes:   900,
		TotalDownVotes: 100,
		MinimumAge:     9,
		AgeDisplay:     "9+",
		Sort:           "top-trending",
		SortName:       "Top Trending",
		Categories:     []string{"top-trending", "most-engaging"},
		Description:    "Climb the tower!  Win prizes!",
		Thumbnail:      "https://cdn.example/thumb.webp",
	}

	e := toEntry(g)
	require.Equal(t, "roblox100", e.ID)
	require.Equal(t, "100", e.PlaceID)
	require.Equal(t, "100", e.URL)
	require.Equal(t, int64(1000), e.UniverseID)
	require.Equal(t, 92.5, e.RatingPercentage)
	require.Equal(t, int64(1000), e.TotalVotes)
	require.Equal(t, "roblox", e.Game)
	require.Equal(t, []string{"dev", "test", "prod"}, e.Stages)
	require.Equal(t, "Top Trending", e.Sort)
	require.Equal(t, "top-trending", e.SortID)
	require.Equal(t, AccessPublic, e.Access)

	// descriptions are normalized to lightweight markdown
	require.Equal(t, "Climb the tower!\n\nWin prizes!", e.Description)
}

// serves one game whose description needs markdown normalization, on
// both the explore listing and the per-game detail endpoints
func newFormattingTestSource(t *testing.T) ChartsSource {
	mux := http.NewServeMux()
	mux.HandleFunc("/get-sorts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"sorts":[{
			"sortId":"top-trending",
			"sortDisplayName":"Top Trending",
			"contentType":"Games",
			"games":[{"universeId":1000,"rootPlaceId":100,"name":"Obby Paradise","playerCount":10}]
		}]}`)
	})
	mux.HandleFunc("/v1/games", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[{"description":"Climb the tower!  Win prizes!","playing":10}]}`)
	})
	mux.HandleFunc("/v1/games/votes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[{"upVotes":1,"downVotes":0}]}`)
	})
	mux.HandleFunc("/v2/games/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	})
	mux.HandleFunc("/v1/batch", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[{"state":"Completed","imageUrl":"https://cdn.example/icon.webp"}]}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewChartsSource(charts.NewClient(charts.Options{
		MaxPages:          1,
		Delay:             1,
		ExploreBaseURL:    server.URL,
		GamesBaseURL:      server.URL,
		ThumbnailsBaseURL: server.URL,
	}))
}

func TestLiveStatsMatchesCandidateFormatting(t *testing.T) {
	ctx := context.Background()
	source := newFormattingTestSource(t)

	candidates, err := source.FetchCandidates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, candidates, 1)
	require.Equal(t, "Climb the tower!\n\nWin prizes!", candidates[0].Description)

	live, err := source.LiveStats(ctx, 1000)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, candidates[0].Description, live.Description)
}

func TestLegacyPassReusesUnchangedFormattedDescription(t *testing.T) {
	ctx := context.Background()
	source := newFormattingTestSource(t)

	oracle := &fakeOracle{moderate: approveAll}
	rec := newTestReconciler(oracle, source)

	candidates, err := source.FetchCandidates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first, firstExclusions, _ := rec.Reconcile(ctx, Snapshot{}, candidates)
	require.Equal(t, 1, oracle.calls)
	require.Equal(t, "Climb the tower!\n\nWin prizes!", first[0].OrigDescription)

	// the entry falls out of the chart feed; upstream text is
	// unchanged, so the legacy refresh must not re-moderate
	second, _, stats := rec.Reconcile(
		ctx,
		Snapshot{Entries: first, Exclusions: firstExclusions},
		nil,
	)
	require.Equal(t, 1, oracle.calls)
	require.Equal(t, 0, stats.ModerationCalls)
	require.Len(t, second, 1)
	require.Equal(t, first[0].OrigDescription, second[0].OrigDescription)
	require.Equal(t, first[0].Description, second[0].Description)
}

func TestToEntryGenericDescription(t *testing.T) {
	g := charts.Game{
		UniverseID:     1000,
		PlaceID:        100,
		Name:           "Obby Paradise",
		PlayerCount:    4200,
		LikeRatio:      0.925,
		TotalUpVotes:   900,
		TotalDownVotes: 100,
	}

	e := toEntry(g)
	require.Equal(
		t,
		"A popular Roblox game with 4200 players. Rating: 92.5% (900 👍 / 100 👎)",
		e.Description,
	)
}
