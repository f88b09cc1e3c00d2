package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marketprose/marketprose/pkg/models"
	"github.com/marketprose/marketprose/pkg/utils"
)

// Benzinga fetches delayed quotes, news, earnings, and analyst ratings from
// the Benzinga REST APIs.
type Benzinga struct {
	apiKey    string
	quoteBase string
	newsBase  string
	calBase   string
	cache     *Cache
	limiter   *RateLimiter
}

// NewBenzinga creates a Benzinga source. Base URLs are injectable so tests
// can point at local fakes.
func NewBenzinga(apiKey, quoteBase, newsBase, calBase string) *Benzinga {
	return &Benzinga{
		apiKey:    apiKey,
		quoteBase: strings.TrimRight(quoteBase, "/"),
		newsBase:  strings.TrimRight(newsBase, "/"),
		calBase:   strings.TrimRight(calBase, "/"),
		cache:     NewCache(time.Minute),
		limiter:   NewRateLimiter(5, time.Second),
	}
}

// Name returns the data source name.
func (b *Benzinga) Name() string { return "Benzinga" }

// GetQuote fetches the delayed quote for a ticker and normalizes it.
// A non-2xx response or a missing ticker key yields ErrNoData, never a
// panic: callers fall back to generic phrasing.
func (b *Benzinga) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol := utils.NormalizeTicker(ticker)

	cacheKey := "quote:" + symbol
	if cached, ok := b.cache.Get(cacheKey); ok {
		return cached.(*models.Quote), nil
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/quoteDelayed?token=%s&symbols=%s", b.quoteBase, url.QueryEscape(b.apiKey), url.QueryEscape(symbol))
	body, _, err := doGet(ctx, u, nil)
	if err != nil {
		if httpErr, ok := err.(*ErrHTTP); ok {
			log.Printf("datasource/benzinga: quote %s upstream %d: %s", symbol, httpErr.StatusCode, httpErr.Body)
			return nil, fmt.Errorf("quote %s: %w", symbol, ErrNoData)
		}
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	defer body.Close()

	// The response is keyed by ticker symbol; the per-symbol shape varies
	// by API version, so it stays dynamic until normalization.
	var payload map[string]map[string]any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse quote %s: %w", symbol, err)
	}

	raw, ok := payload[symbol]
	if !ok {
		// Some API versions key lowercase.
		raw, ok = payload[strings.ToLower(symbol)]
	}
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", symbol, ErrNoData)
	}

	quote := normalizeQuote(symbol, raw)
	b.cache.Set(cacheKey, quote)
	return quote, nil
}

// --- News search ---

type bzChannel struct {
	Name string `json:"name"`
}

type bzNewsItem struct {
	ID       json.Number `json:"id"`
	Title    string      `json:"title"`
	URL      string      `json:"url"`
	Author   string      `json:"author"`
	Teaser   string      `json:"teaser"`
	Channels []bzChannel `json:"channels"`
	Created  string      `json:"created"`
}

// SearchNews returns recent articles tagged with the ticker. Channel tags
// are preserved so callers can filter out press releases.
func (b *Benzinga) SearchNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	symbol := utils.NormalizeTicker(ticker)
	if limit <= 0 {
		limit = 10
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/news?token=%s&tickers=%s&items=%d&displayOutput=abstract",
		b.newsBase, url.QueryEscape(b.apiKey), url.QueryEscape(symbol), limit)
	body, _, err := doGet(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("news search %s: %w", symbol, err)
	}
	defer body.Close()

	var items []bzNewsItem
	if err := json.NewDecoder(body).Decode(&items); err != nil {
		return nil, fmt.Errorf("parse news %s: %w", symbol, err)
	}

	articles := make([]models.NewsArticle, 0, len(items))
	for _, it := range items {
		a := models.NewsArticle{
			ID:     it.ID.String(),
			Title:  strings.TrimSpace(it.Title),
			URL:    it.URL,
			Author: it.Author,
			Teaser: it.Teaser,
		}
		for _, ch := range it.Channels {
			a.Channels = append(a.Channels, ch.Name)
		}
		if t, err := parseNewsTime(it.Created); err == nil {
			a.PublishedAt = t
		}
		if a.Title == "" || a.URL == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// parseNewsTime handles the timestamp formats the news API has been seen
// emitting across versions.
func parseNewsTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123Z, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// --- Earnings calendar ---

type bzEarningsResponse struct {
	Earnings []struct {
		Ticker     string `json:"ticker"`
		Name       string `json:"name"`
		Date       string `json:"date"`
		EPSEst     string `json:"eps_est"`
		EPS        string `json:"eps"`
		RevenueEst string `json:"revenue_est"`
	} `json:"earnings"`
}

// GetEarnings returns upcoming/recent earnings-calendar rows for a ticker.
func (b *Benzinga) GetEarnings(ctx context.Context, ticker string) ([]models.EarningsEvent, error) {
	symbol := utils.NormalizeTicker(ticker)

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/calendar/earnings?token=%s&parameters[tickers]=%s",
		b.calBase, url.QueryEscape(b.apiKey), url.QueryEscape(symbol))
	body, _, err := doGet(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("earnings %s: %w", symbol, err)
	}
	defer body.Close()

	var resp bzEarningsResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("parse earnings %s: %w", symbol, err)
	}

	events := make([]models.EarningsEvent, 0, len(resp.Earnings))
	for _, e := range resp.Earnings {
		ev := models.EarningsEvent{
			Symbol:          strings.ToUpper(e.Ticker),
			CompanyName:     e.Name,
			EPSEstimate:     parseOptFloat(e.EPSEst),
			EPSActual:       parseOptFloat(e.EPS),
			RevenueEstimate: parseOptFloat(e.RevenueEst),
		}
		if t, err := time.Parse("2006-01-02", e.Date); err == nil {
			ev.Date = t
		}
		events = append(events, ev)
	}
	return events, nil
}

// --- Analyst ratings ---

type bzRatingsResponse struct {
	Ratings []struct {
		Ticker        string `json:"ticker"`
		Analyst       string `json:"analyst"`      // firm
		AnalystName   string `json:"analyst_name"` // person
		Action        string `json:"action_company"`
		RatingCurrent string `json:"rating_current"`
		RatingPrior   string `json:"rating_prior"`
		PTCurrent     string `json:"pt_current"`
		PTPrior       string `json:"pt_prior"`
		Date          string `json:"date"`
	} `json:"ratings"`
}

// GetRatings returns recent analyst actions for a ticker, newest first as
// the upstream emits them.
func (b *Benzinga) GetRatings(ctx context.Context, ticker string) ([]models.AnalystRating, error) {
	symbol := utils.NormalizeTicker(ticker)

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/calendar/ratings?token=%s&parameters[tickers]=%s",
		b.calBase, url.QueryEscape(b.apiKey), url.QueryEscape(symbol))
	body, _, err := doGet(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ratings %s: %w", symbol, err)
	}
	defer body.Close()

	var resp bzRatingsResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("parse ratings %s: %w", symbol, err)
	}

	ratings := make([]models.AnalystRating, 0, len(resp.Ratings))
	for _, r := range resp.Ratings {
		rating := models.AnalystRating{
			Symbol:        strings.ToUpper(r.Ticker),
			Firm:          r.Analyst,
			Analyst:       r.AnalystName,
			Action:        r.Action,
			RatingCurrent: r.RatingCurrent,
			RatingPrior:   r.RatingPrior,
			PTCurrent:     parseOptFloat(r.PTCurrent),
			PTPrior:       parseOptFloat(r.PTPrior),
		}
		if t, err := time.Parse("2006-01-02", r.Date); err == nil {
			rating.Date = t
		}
		ratings = append(ratings, rating)
	}
	return ratings, nil
}

// parseOptFloat parses an optional numeric string; empty or unparsable is absent.
func parseOptFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
