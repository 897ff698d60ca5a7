package charts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Details is the live per-game payload assembled from the games and
// votes APIs.
type Details struct {
	Description string
	PlayerCount int64
	UpVotes     int64
	DownVotes   int64
}

type gamesDetailResponse struct {
	Data []struct {
		Description string `json:"description"`
		Playing     int64  `json:"playing"`
	} `json:"data"`
}

type votesResponse struct {
	Data []struct {
		UpVotes   int64 `json:"upVotes"`
		DownVotes int64 `json:"downVotes"`
	} `json:"data"`
}

// Details fetches the current description, player count, and vote
// totals for one universe.
func (c *Client) Details(ctx context.Context, universeID int64) (Details, error) {
	ctx, span := tracer.Start(ctx, "Details")
	defer span.End()

	id := strconv.FormatInt(universeID, 10)

	var games gamesDetailResponse
	res, err := c.games.R().
		SetContext(ctx).
		SetQueryParam("universeIds", id).
		SetResult(&games).
		Get(c.gamesBase + "/v1/games")
	if err != nil {
		return Details{}, err
	}
	if res.IsError() {
		return Details{}, fmt.Errorf("games api returned %s", res.Status())
	}
	if len(games.Data) == 0 {
		return Details{}, fmt.Errorf("universe %d not found", universeID)
	}

	var votes votesResponse
	res, err = c.games.R().
		SetContext(ctx).
		SetQueryParam("universeIds", id).
		SetResult(&votes).
		Get(c.gamesBase + "/v1/games/votes")
	if err != nil {
		return Details{}, err
	}
	if res.IsError() {
		return Details{}, fmt.Errorf("votes api returned %s", res.Status())
	}

	details := Details{
		Description: games.Data[0].Description,
		PlayerCount: games.Data[0].Playing,
	}
	if len(votes.Data) > 0 {
		details.UpVotes = votes.Data[0].UpVotes
		details.DownVotes = votes.Data[0].DownVotes
	}
	return details, nil
}

type mediaResponse struct {
	Data []struct {
		AssetType string `json:"assetType"`
		Approved  bool   `json:"approved"`
		ImageID   int64  `json:"imageId"`
	} `json:"data"`
}

type thumbnailBatchRequest struct {
	RequestID string `json:"requestId"`
	Type      string `json:"type"`
	TargetID  int64  `json:"targetId"`
	Format    string `json:"format"`
	Size      string `json:"size"`
}

type thumbnailBatchResponse struct {
	Data []struct {
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

// Thumbnail resolves a 768x432 webp thumbnail url for a universe. It
// prefers the game's first approved media image and falls back to the
// generic game icon.
func (c *Client) Thumbnail(ctx context.Context, universeID int64) (string, error) {
	ctx, span := tracer.Start(ctx, "Thumbnail")
	defer span.End()

	var media mediaResponse
	res, err := c.games.R().
		SetContext(ctx).
		SetResult(&media).
		Get(fmt.Sprintf("%s/v2/games/%d/media", c.gamesBase, universeID))
	if err == nil && !res.IsError() {
		for _, item := range media.Data {
			if item.AssetType != "Image" || !item.Approved {
				continue
			}
			url, err := c.batchThumbnail(ctx, "Asset", item.ImageID)
			if err == nil && url != "" {
				return url, nil
			}
			break
		}
	}

	url, err := c.batchThumbnail(ctx, "GameIcon", universeID)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", fmt.Errorf("no completed thumbnail for universe %d", universeID)
	}
	return url, nil
}

func (c *Client) batchThumbnail(ctx context.Context, kind string, targetID int64) (string, error) {
	var batch thumbnailBatchResponse
	res, err := c.games.R().
		SetContext(ctx).
		SetBody([]thumbnailBatchRequest{{
			RequestID: fmt.Sprintf("%d::%s:768x432:webp:regular:", targetID, kind),
			Type:      kind,
			TargetID:  targetID,
			Format:    "webp",
			Size:      "768x432",
		}}).
		SetResult(&batch).
		Post(c.thumbsBase + "/v1/batch")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("thumbnail batch api returned %s", res.Status())
	}
	for _, item := range batch.Data {
		if item.State == "Completed" && item.ImageURL != "" {
			return item.ImageURL, nil
		}
	}
	return "", nil
}

// Enrich fills descriptions and thumbnails for every game in place.
// Failures are logged and skipped, a game without enrichment keeps
// its generic listing data.
func (c *Client) Enrich(ctx context.Context, games []Game) {
	ctx, span := tracer.Start(ctx, "Enrich")
	defer span.End()

	for i := range games {
		g := &games[i]
		if g.UniverseID == 0 {
			slog.WarnContext(ctx, "game has no universe id, skipping enrichment", "name", g.Name)
			continue
		}

		details, err := c.Details(ctx, g.UniverseID)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch game details", "name", g.Name, "err", err)
		} else {
			g.Description = details.Description
		}

		thumbnail, err := c.Thumbnail(ctx, g.UniverseID)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch thumbnail", "name", g.Name, "err", err)
		} else {
			g.Thumbnail = thumbnail
		}

		if i < len(games)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.delay):
			}
		}
	}
}
