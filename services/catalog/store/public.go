package store

import "gamevault-backend/services/catalog"

// publicEntry is the consumer-facing projection of a catalog entry.
// Moderation internals (the original description, AI flags, AI
// reasoning) never leave the private snapshot. Access leads the field
// order so clients can cheaply sanity-check the payload shape.
type publicEntry struct {
	Access           string   `json:"access"`
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
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
}

func publicEntries(entries []catalog.Entry) []publicEntry {
	out := make([]publicEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, publicEntry{
			Access:           e.Access,
			ID:               e.ID,
			Name:             e.Name,
			Description:      e.Description,
			URL:              e.URL,
			Categories:       e.Categories,
			ServerFiles:      e.ServerFiles,
			Game:             e.Game,
			Version:          e.Version,
			Stages:           e.Stages,
			UniverseID:       e.UniverseID,
			PlaceID:          e.PlaceID,
			PlayerCount:      e.PlayerCount,
			RatingPercentage: e.RatingPercentage,
			TotalVotes:       e.TotalVotes,
			MinimumAge:       e.MinimumAge,
			AgeDisplay:       e.AgeDisplay,
			IsSponsored:      e.IsSponsored,
			Sort:             e.Sort,
			SortID:           e.SortID,
			Img:              e.Img,
		})
	}
	return out
}
