package models

import (
	"strings"
	"time"
)

// NewsArticle represents a single article record from a news-search source.
type NewsArticle struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Author      string    `json:"author,omitempty"`
	Source      string    `json:"source,omitempty"`
	Teaser      string    `json:"teaser,omitempty"`
	Channels    []string  `json:"channels,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// pressReleaseChannels are the feed tags that mark company-issued releases
// rather than independent journalism.
var pressReleaseChannels = map[string]bool{
	"press releases": true,
	"press-releases": true,
	"pressreleases":  true,
}

// IsPressRelease reports whether the article is tagged as a company-issued
// press release. Context sourcing filters these out.
func (a *NewsArticle) IsPressRelease() bool {
	for _, ch := range a.Channels {
		if pressReleaseChannels[strings.ToLower(strings.TrimSpace(ch))] {
			return true
		}
	}
	return false
}

// EarningsEvent represents one row from an earnings-calendar source.
type EarningsEvent struct {
	Symbol          string    `json:"symbol"`
	CompanyName     string    `json:"company_name,omitempty"`
	Date            time.Time `json:"date"`
	EPSEstimate     *float64  `json:"eps_estimate,omitempty"`
	EPSActual       *float64  `json:"eps_actual,omitempty"`
	RevenueEstimate *float64  `json:"revenue_estimate,omitempty"`
}

// AnalystRating represents a single analyst action on a ticker.
type AnalystRating struct {
	Symbol        string    `json:"symbol"`
	Firm          string    `json:"firm"`
	Analyst       string    `json:"analyst,omitempty"`
	Action        string    `json:"action"` // e.g., "Maintains", "Upgrades", "Initiates"
	RatingCurrent string    `json:"rating_current"`
	RatingPrior   string    `json:"rating_prior,omitempty"`
	PTCurrent     *float64  `json:"pt_current,omitempty"`
	PTPrior       *float64  `json:"pt_prior,omitempty"`
	Date          time.Time `json:"date"`
}
