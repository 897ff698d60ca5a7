package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{
		MaxPages:          10,
		Blacklist:         []string{"sponsored"},
		Delay:             1,
		ExploreBaseURL:    server.URL,
		GamesBaseURL:      server.URL,
		ThumbnailsBaseURL: server.URL,
	})
}

func sortsPage(token string, sorts ...map[string]any) string {
	page := map[string]any{"sorts": sorts}
	if token != "" {
		page["nextSortsPageToken"] = token
	}
	data, _ := json.Marshal(page)
	return string(data)
}

func gameJSON(universeID, placeID int64, name string) map[string]any {
	return map[string]any{
		"universeId":     universeID,
		"rootPlaceId":    placeID,
		"name":           name,
		"playerCount":    1000,
		"likeRatio":      0.925,
		"totalUpVotes":   900,
		"totalDownVotes": 100,
		"minimumAge":     9,
		"isSponsored":    false,
	}
}

func TestFetchAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get-sorts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		if r.URL.Query().Get("sortsPageToken") == "" {
			require.NotEmpty(t, r.URL.Query().Get("sessionId"))
			fmt.Fprint(w, sortsPage("page2",
				map[string]any{
					"sortId":          "top-trending",
					"sortDisplayName": "Top Trending",
					"contentType":     "Games",
					"games": []any{
						gameJSON(1, 100, "Obby Paradise"),
						gameJSON(2, 200, "Classic Tycoon"),
					},
				},
				map[string]any{
					"sortId":          "filters",
					"sortDisplayName": "Filters",
					"contentType":     "Filters",
					"games":           []any{gameJSON(3, 300, "Not A Game")},
				},
				map[string]any{
					"sortId":          "sponsored",
					"sortDisplayName": "Sponsored",
					"contentType":     "Games",
					"games":           []any{gameJSON(4, 400, "Paid Placement")},
				},
			))
			return
		}
		require.Equal(t, "page2", r.URL.Query().Get("sortsPageToken"))
		fmt.Fprint(w, sortsPage("",
			map[string]any{
				"sortId":          "most-engaging",
				"sortDisplayName": "Most Engaging",
				"contentType":     "Games",
				"games": []any{
					gameJSON(1, 100, "Obby Paradise"),
					gameJSON(5, 500, "Pet Ranch"),
				},
			},
		))
	})

	client := newTestClient(t, mux)
	games, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	require.Len(t, games, 3)

	byName := map[string]Game{}
	for _, g := range games {
		byName[g.Name] = g
	}
	require.NotContains(t, byName, "Not A Game")
	require.NotContains(t, byName, "Paid Placement")

	// the duplicate across pages collects both charts
	obby := byName["Obby Paradise"]
	require.Equal(t, []string{"top-trending", "most-engaging"}, obby.Categories)
	require.Equal(t, "top-trending", obby.Sort)
	require.Equal(t, "Top Trending", obby.SortName)
	require.Equal(t, int64(100), obby.PlaceID)
	require.Equal(t, int64(1000), obby.PlayerCount)
}

func TestFetchAllRetriesRateLimit(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/get-sorts", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, sortsPage("", map[string]any{
			"sortId":          "top-trending",
			"sortDisplayName": "Top Trending",
			"contentType":     "Games",
			"games":           []any{gameJSON(1, 100, "Obby Paradise")},
		}))
	})

	client := newTestClient(t, mux)
	games, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, attempts)
	require.Len(t, games, 1)
}

func TestDetails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/games", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1000", r.URL.Query().Get("universeIds"))
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[{"description":"a live description","playing":4200}]}`)
	})
	mux.HandleFunc("/v1/games/votes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[{"upVotes":900,"downVotes":100}]}`)
	})

	client := newTestClient(t, mux)
	details, err := client.Details(context.Background(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "a live description", details.Description)
	require.Equal(t, int64(4200), details.PlayerCount)
	require.Equal(t, int64(900), details.UpVotes)
	require.Equal(t, int64(100), details.DownVotes)
}

func TestDetailsUnknownUniverse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/games", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	})

	client := newTestClient(t, mux)
	_, err := client.Details(context.Background(), 9999)
	if err == nil {
		t.Fatal("expected an error for an unknown universe")
	}
}

func TestThumbnailPrefersApprovedMedia(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/games/1000/media", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"assetType":"Video","approved":true,"imageId":0},
			{"assetType":"Image","approved":true,"imageId":777}
		]}`)
	})
	mux.HandleFunc("/v1/batch", func(w http.ResponseWriter, r *http.Request) {
		var reqs []thumbnailBatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
		require.Len(t, reqs, 1)
		require.Equal(t, "Asset", reqs[0].Type)
		require.Equal(t, int64(777), reqs[0].TargetID)

		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[{"state":"Completed","imageUrl":"https://cdn.example/thumb.webp"}]}`)
	})

	client := newTestClient(t, mux)
	url, err := client.Thumbnail(context.Background(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "https://cdn.example/thumb.webp", url)
}

func TestThumbnailFallsBackToGameIcon(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/games/1000/media", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	})
	mux.HandleFunc("/v1/batch", func(w http.ResponseWriter, r *http.Request) {
		var reqs []thumbnailBatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
		require.Equal(t, "GameIcon", reqs[0].Type)
		require.Equal(t, int64(1000), reqs[0].TargetID)

		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[{"state":"Completed","imageUrl":"https://cdn.example/icon.webp"}]}`)
	})

	client := newTestClient(t, mux)
	url, err := client.Thumbnail(context.Background(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "https://cdn.example/icon.webp", url)
}

func TestEnrich(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/games", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"data":[{"description":"enriched description","playing":10}]}`)
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

	client := newTestClient(t, mux)
	games := []Game{
		{UniverseID: 1000, Name: "Obby Paradise"},
		{UniverseID: 0, Name: "No Universe"},
	}
	client.Enrich(context.Background(), games)

	require.Equal(t, "enriched description", games[0].Description)
	require.Equal(t, "https://cdn.example/icon.webp", games[0].Thumbnail)
	require.Empty(t, games[1].Description)
	require.Empty(t, games[1].Thumbnail)
}
