// Package charts scrapes the Roblox explore API for chart listings
// and per-game live details.
package charts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gamevault-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/scrapers/charts")

const (
	exploreBaseURL    = "https://apis.roblox.com/explore-api/v1"
	gamesBaseURL      = "https://games.roblox.com"
	thumbnailsBaseURL = "https://thumbnails.roblox.com"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type Options struct {
	// MaxPages caps explore API pagination. Zero means 5.
	MaxPages int
	// Blacklist lists sort ids to skip entirely.
	Blacklist []string
	// Delay is the courtesy pause between per-game detail requests.
	// Zero means 500ms.
	Delay time.Duration
	// SessionID is sent with explore requests. Zero means a fixed
	// default the API accepts.
	SessionID string

	// Base URL overrides, for tests.
	ExploreBaseURL    string
	GamesBaseURL      string
	ThumbnailsBaseURL string
}

type Client struct {
	explore    *resty.Client
	games      *resty.Client
	gamesBase  string
	thumbsBase string
	maxPages   int
	blacklist  map[string]bool
	delay      time.Duration
	sessionID  string
}

func NewClient(opts Options) *Client {
	if opts.MaxPages == 0 {
		opts.MaxPages = 5
	}
	if opts.Delay == 0 {
		opts.Delay = 500 * time.Millisecond
	}
	if opts.SessionID == "" {
		opts.SessionID = "57ac3f13-670d-4dbc-bb97-8df080f955fc"
	}
	if opts.ExploreBaseURL == "" {
		opts.ExploreBaseURL = exploreBaseURL
	}
	if opts.GamesBaseURL == "" {
		opts.GamesBaseURL = gamesBaseURL
	}
	if opts.ThumbnailsBaseURL == "" {
		opts.ThumbnailsBaseURL = thumbnailsBaseURL
	}
	blacklist := map[string]bool{}
	for _, id := range opts.Blacklist {
		blacklist[id] = true
	}

	explore := resty.New()
	explore.SetBaseURL(opts.ExploreBaseURL)
	// browser-like headers, the explore API rejects obvious bots
	explore.SetHeader("user-agent", userAgent)
	explore.SetHeader("accept", "application/json, text/plain, */*")
	explore.SetHeader("accept-language", "en-US,en;q=0.9")
	explore.SetHeader("origin", "https://www.roblox.com")
	explore.SetHeader("referer", "https://www.roblox.com/")
	setupRetry(explore)
	telemetry.InstrumentResty(explore, "lib/scrapers/charts")

	games := resty.New()
	games.SetHeader("user-agent", userAgent)
	setupRetry(games)
	telemetry.InstrumentResty(games, "lib/scrapers/charts")

	return &Client{
		explore:    explore,
		games:      games,
		gamesBase:  opts.GamesBaseURL,
		thumbsBase: opts.ThumbnailsBaseURL,
		maxPages:   opts.MaxPages,
		blacklist:  blacklist,
		delay:      opts.Delay,
		sessionID:  opts.SessionID,
	}
}

func setupRetry(client *resty.Client) {
	client.SetRetryCount(3)
	client.SetRetryWaitTime(time.Second)
	client.SetRetryMaxWaitTime(8 * time.Second)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err == nil && res.StatusCode() == 429
	})
}

// Game is one listing from the explore API, accumulated across every
// chart it appears on.
type Game struct {
	UniverseID     int64
	PlaceID        int64
	Name           string
	PlayerCount    int64
	LikeRatio      float64
	TotalUpVotes   int64
	TotalDownVotes int64
	MinimumAge     int32
	AgeDisplay     string
	IsSponsored    bool

	// Sort and SortName identify the first chart the game was seen
	// on; Categories collects every chart.
	Sort       string
	SortName   string
	Categories []string

	// filled by Enrich
	Description string
	Thumbnail   string
}

type sortsResponse struct {
	Sorts              []sortInfo `json:"sorts"`
	NextSortsPageToken string     `json:"nextSortsPageToken"`
}

type sortInfo struct {
	SortID          string     `json:"sortId"`
	SortDisplayName string     `json:"sortDisplayName"`
	ContentType     string     `json:"contentType"`
	Games           []gameInfo `json:"games"`
}

type gameInfo struct {
	UniverseID     int64   `json:"universeId"`
	RootPlaceID    int64   `json:"rootPlaceId"`
	Name           string  `json:"name"`
	PlayerCount    int64   `json:"playerCount"`
	LikeRatio      float64 `json:"likeRatio"`
	TotalUpVotes   int64   `json:"totalUpVotes"`
	TotalDownVotes int64   `json:"totalDownVotes"`
	MinimumAge     int32   `json:"minimumAge"`
	AgeDisplayName string  `json:"ageRecommendationDisplayName"`
	IsSponsored    bool    `json:"isSponsored"`
}

// FetchAll walks the explore API's charts page by page, skipping
// non-game sorts and blacklisted charts, and deduplicates games by
// universe id while merging the charts each one appeared on.
func (c *Client) FetchAll(ctx context.Context) ([]Game, error) {
	ctx, span := tracer.Start(ctx, "FetchAll")
	defer span.End()

	var all []Game
	byUniverse := map[int64]int{}
	pageToken := ""

	for page := 1; page <= c.maxPages; page++ {
		data, err := c.fetchSortsPage(ctx, pageToken)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("explore page %d: %w", page, err)
		}
		if len(data.Sorts) == 0 {
			break
		}

		for _, sort := range data.Sorts {
			if sort.ContentType != "Games" || len(sort.Games) == 0 {
				continue
			}
			if c.blacklist[sort.SortID] {
				slog.DebugContext(ctx, "skipping blacklisted chart", "sort", sort.SortID)
				continue
			}

			for _, g := range sort.Games {
				if g.UniverseID == 0 {
					continue
				}
				if idx, ok := byUniverse[g.UniverseID]; ok {
					merge(&all[idx], sort.SortID)
					continue
				}
				all = append(all, Game{
					UniverseID:     g.UniverseID,
					PlaceID:        g.RootPlaceID,
					Name:           g.Name,
					PlayerCount:    g.PlayerCount,
					LikeRatio:      g.LikeRatio,
					TotalUpVotes:   g.TotalUpVotes,
					TotalDownVotes: g.TotalDownVotes,
					MinimumAge:     g.MinimumAge,
					AgeDisplay:     g.AgeDisplayName,
					IsSponsored:    g.IsSponsored,
					Sort:           sort.SortID,
					SortName:       sort.SortDisplayName,
					Categories:     []string{sort.SortID},
				})
				byUniverse[g.UniverseID] = len(all) - 1
			}
		}

		slog.InfoContext(ctx, "fetched explore page", "page", page, "unique_games", len(all))
		pageToken = data.NextSortsPageToken
		if pageToken == "" {
			break
		}
	}

	span.SetAttributes(attribute.Int("games", len(all)))
	return all, nil
}

func merge(g *Game, sortID string) {
	for _, c := range g.Categories {
		if c == sortID {
			return
		}
	}
	g.Categories = append(g.Categories, sortID)
}

func (c *Client) fetchSortsPage(ctx context.Context, pageToken string) (sortsResponse, error) {
	req := c.explore.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"cpuCores":      "4",
			"maxResolution": "1280x800",
			"maxMemory":     "8192",
			"networkType":   "4g",
			"sessionId":     c.sessionID,
		})
	if pageToken != "" {
		req.SetQueryParam("sortsPageToken", pageToken)
	}

	var data sortsResponse
	res, err := req.SetResult(&data).Get("/get-sorts")
	if err != nil {
		return sortsResponse{}, err
	}
	if res.IsError() {
		return sortsResponse{}, fmt.Errorf("explore api returned %s", res.Status())
	}
	return data, nil
}
