package catalog

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"gamevault-backend/lib/scrapers/charts"
	"gamevault-backend/lib/textutil"
)

// ChartsSource adapts the charts scraper into both the candidate feed
// and the per-entry detail refresh.
type ChartsSource struct {
	client *charts.Client
}

func NewChartsSource(client *charts.Client) ChartsSource {
	return ChartsSource{client: client}
}

func (s ChartsSource) FetchCandidates(ctx context.Context) ([]Entry, error) {
	games, err := s.client.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	s.client.Enrich(ctx, games)

	entries := make([]Entry, 0, len(games))
	for _, g := range games {
		entries = append(entries, toEntry(g))
	}
	return entries, nil
}

func (s ChartsSource) LiveStats(ctx context.Context, universeID int64) (LiveStats, error) {
	details, err := s.client.Details(ctx, universeID)
	if err != nil {
		return LiveStats{}, err
	}
	return LiveStats{
		// formatted the same way as the candidate path so an
		// unchanged upstream description never reads as drift
		Description: textutil.FormatMarkdown(details.Description),
		PlayerCount: details.PlayerCount,
		UpVotes:     details.UpVotes,
		DownVotes:   details.DownVotes,
	}, nil
}

// toEntry converts a chart listing into the gameserver-details shape.
// The description stays raw here; moderation decides what is
// published.
func toEntry(g charts.Game) Entry {
	placeID := strconv.FormatInt(g.PlaceID, 10)
	rating := math.Round(g.LikeRatio*1000) / 10

	description := g.Description
	if description == "" {
		description = fmt.Sprintf(
			"A popular Roblox game with %d players. Rating: %.1f%% (%d 👍 / %d 👎)",
			g.PlayerCount, rating, g.TotalUpVotes, g.TotalDownVotes,
		)
	}

	return Entry{
		ID:               "roblox" + placeID,
		Name:             g.Name,
		Description:      textutil.FormatMarkdown(description),
		URL:              placeID,
		Categories:       g.Categories,
		ServerFiles:      []string{},
		Game:             "roblox",
		Version:          "latest",
		Stages:           []string{"dev", "test", "prod"},
		UniverseID:       g.UniverseID,
		PlaceID:          placeID,
		PlayerCount:      g.PlayerCount,
		RatingPercentage: rating,
		TotalVotes:       g.TotalUpVotes + g.TotalDownVotes,
		MinimumAge:       g.MinimumAge,
		AgeDisplay:       g.AgeDisplay,
		IsSponsored:      g.IsSponsored,
		Sort:             g.SortName,
		SortID:           g.Sort,
		Img:              g.Thumbnail,
		Access:           AccessPublic,
	}
}
