package workshop

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type modPageDoc struct {
	Props struct {
		PageProps struct {
			Asset struct {
				Name                 string  `json:"name"`
				CurrentVersionNumber string  `json:"currentVersionNumber"`
				AverageRating        float64 `json:"averageRating"`
				UpdatedAt            string  `json:"updatedAt"`
				GameVersion          string  `json:"gameVersion"`
				Author               struct {
					Username string `json:"username"`
				} `json:"author"`
				Dependencies []struct {
					Version string `json:"version"`
					Asset   struct {
						ID   string `json:"id"`
						Name string `json:"name"`
					} `json:"asset"`
				} `json:"dependencies"`
			} `json:"asset"`
			DownloadTotal struct {
				Total int `json:"total"`
			} `json:"getAssetDownloadTotal"`
		} `json:"pageProps"`
	} `json:"props"`
}

type searchDoc struct {
	Props struct {
		PageProps struct {
			Assets struct {
				Count int `json:"count"`
				Rows  []struct {
					ID                   string `json:"id"`
					Name                 string `json:"name"`
					CurrentVersionNumber string `json:"currentVersionNumber"`
				} `json:"rows"`
			} `json:"assets"`
		} `json:"pageProps"`
	} `json:"props"`
}

func parseModPage(r io.Reader) (ModDetails, error) {
	raw, err := pageJSON(r)
	if err != nil {
		return ModDetails{}, err
	}
	var doc modPageDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ModDetails{}, fmt.Errorf("decode mod page: %w", err)
	}
	asset := doc.Props.PageProps.Asset
	if asset.Name == "" {
		return ModDetails{}, fmt.Errorf("mod page has no asset data")
	}

	details := ModDetails{
		Name:        asset.Name,
		Version:     asset.CurrentVersionNumber,
		Author:      asset.Author.Username,
		RatingPct:   int(asset.AverageRating * 100),
		Downloads:   doc.Props.PageProps.DownloadTotal.Total,
		GameVersion: asset.GameVersion,
	}
	if t, err := time.Parse(time.RFC3339, asset.UpdatedAt); err == nil {
		details.UpdatedAt = t
	}
	for _, dep := range asset.Dependencies {
		details.Dependencies = append(details.Dependencies, Dependency{
			ID:      dep.Asset.ID,
			Name:    dep.Asset.Name,
			Version: dep.Version,
		})
	}
	return details, nil
}

func parseSearch(r io.Reader) ([]SearchResult, error) {
	raw, err := pageJSON(r)
	if err != nil {
		return nil, err
	}
	var doc searchDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode search page: %w", err)
	}
	assets := doc.Props.PageProps.Assets

	n := assets.Count
	if n > len(assets.Rows) {
		n = len(assets.Rows)
	}
	if n > maxSearchResults {
		n = maxSearchResults
	}
	results := make([]SearchResult, 0, n)
	for _, row := range assets.Rows[:n] {
		results = append(results, SearchResult{
			ID:      row.ID,
			Name:    row.Name,
			Version: row.CurrentVersionNumber,
		})
	}
	return results, nil
}
