package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marketprose/marketprose/internal/config"
	"github.com/marketprose/marketprose/pkg/models"
	"github.com/marketprose/marketprose/pkg/utils"
)

// QuoteSource fetches a normalized quote for one ticker.
type QuoteSource interface {
	Name() string
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)
}

// NewsSource searches recent articles tagged with a ticker.
type NewsSource interface {
	Name() string
	SearchNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error)
}

// CalendarSource fetches earnings and analyst-rating calendar rows.
type CalendarSource interface {
	Name() string
	GetEarnings(ctx context.Context, ticker string) ([]models.EarningsEvent, error)
	GetRatings(ctx context.Context, ticker string) ([]models.AnalystRating, error)
}

// StoryContext bundles everything the editorial layer needs for one ticker.
// Any slice may be empty and Quote may be nil; the editorial layer degrades
// phrasing rather than failing.
type StoryContext struct {
	Ticker    string                 `json:"ticker"`
	Quote     *models.Quote          `json:"quote,omitempty"`
	News      []models.NewsArticle   `json:"news,omitempty"`
	Earnings  []models.EarningsEvent `json:"earnings,omitempty"`
	Ratings   []models.AnalystRating `json:"ratings,omitempty"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// Aggregator fetches and merges data from the configured sources
// concurrently. The quote fallback order is fixed: primary API, then the
// snapshot API; news falls back from the search API to RSS feeds.
type Aggregator struct {
	quote         QuoteSource
	quoteFallback QuoteSource
	news          NewsSource
	newsFallback  NewsSource
	calendar      CalendarSource
}

// NewAggregator wires the default sources from config.
func NewAggregator(cfg *config.Config) *Aggregator {
	bz := NewBenzinga(cfg.Data.BenzingaKey, cfg.Data.QuoteBaseURL, cfg.Data.NewsBaseURL, cfg.Data.CalendarBaseURL)
	agg := &Aggregator{
		quote:        bz,
		news:         bz,
		newsFallback: NewRSSNews(),
		calendar:     bz,
	}
	if cfg.Data.PolygonKey != "" {
		agg.quoteFallback = NewPolygon(cfg.Data.PolygonKey, cfg.Data.PolygonBaseURL)
	}
	return agg
}

// NewAggregatorWithSources builds an aggregator over explicit sources.
// Nil fallbacks are allowed.
func NewAggregatorWithSources(quote, quoteFallback QuoteSource, news, newsFallback NewsSource, calendar CalendarSource) *Aggregator {
	return &Aggregator{
		quote:         quote,
		quoteFallback: quoteFallback,
		news:          news,
		newsFallback:  newsFallback,
		calendar:      calendar,
	}
}

// FetchQuote fetches a quote with the fallback chain. Only when every
// source comes back empty does the ErrNoData surface to the caller.
func (a *Aggregator) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol := utils.NormalizeTicker(ticker)

	quote, err := a.quote.GetQuote(ctx, symbol)
	if err == nil {
		return quote, nil
	}
	if a.quoteFallback == nil {
		return nil, err
	}

	quote, fbErr := a.quoteFallback.GetQuote(ctx, symbol)
	if fbErr != nil {
		if errors.Is(err, ErrNoData) && errors.Is(fbErr, ErrNoData) {
			return nil, fmt.Errorf("quote %s: %w", symbol, ErrNoData)
		}
		return nil, errors.Join(err, fbErr)
	}
	return quote, nil
}

// FetchNews fetches recent non-press-release articles for a ticker. The
// RSS feeds are consulted when the search API errors or, after press
// releases are dropped, yields nothing usable.
func (a *Aggregator) FetchNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	articles, err := a.news.SearchNews(ctx, ticker, limit)
	filtered := dropPressReleases(articles)
	if (err != nil || len(filtered) == 0) && a.newsFallback != nil {
		fbArticles, fbErr := a.newsFallback.SearchNews(ctx, ticker, limit)
		if fbErr == nil {
			return dropPressReleases(fbArticles), nil
		}
		if err != nil {
			return nil, errors.Join(err, fbErr)
		}
	}
	if err != nil {
		return nil, err
	}
	return filtered, nil
}

// dropPressReleases copies rather than filters in place: sources may hand
// back cached slices.
func dropPressReleases(articles []models.NewsArticle) []models.NewsArticle {
	filtered := make([]models.NewsArticle, 0, len(articles))
	for _, art := range articles {
		if art.IsPressRelease() {
			continue
		}
		filtered = append(filtered, art)
	}
	return filtered
}

// FetchRatings fetches recent analyst actions for a ticker.
func (a *Aggregator) FetchRatings(ctx context.Context, ticker string) ([]models.AnalystRating, error) {
	return a.calendar.GetRatings(ctx, utils.NormalizeTicker(ticker))
}

// FetchStoryContext aggregates quote, news, earnings, and ratings for one
// ticker concurrently. Individual source failures are non-fatal; the call
// errors only when every source failed and nothing was gathered.
func (a *Aggregator) FetchStoryContext(ctx context.Context, ticker string) (*StoryContext, error) {
	symbol := utils.NormalizeTicker(ticker)

	sc := &StoryContext{
		Ticker:    symbol,
		FetchedAt: utils.NowEastern(),
	}

	var mu sync.Mutex
	var errs []error

	g, gctx := errgroup.WithContext(ctx)

	// 1. Quote with fallback chain.
	g.Go(func() error {
		quote, err := a.FetchQuote(gctx, symbol)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("quote: %w", err))
			mu.Unlock()
			return nil // non-fatal
		}
		mu.Lock()
		sc.Quote = quote
		mu.Unlock()
		return nil
	})

	// 2. News with RSS fallback.
	g.Go(func() error {
		articles, err := a.FetchNews(gctx, symbol, 10)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("news: %w", err))
			mu.Unlock()
			return nil
		}
		mu.Lock()
		sc.News = articles
		mu.Unlock()
		return nil
	})

	// 3. Earnings calendar.
	g.Go(func() error {
		events, err := a.calendar.GetEarnings(gctx, symbol)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("earnings: %w", err))
			mu.Unlock()
			return nil
		}
		mu.Lock()
		sc.Earnings = events
		mu.Unlock()
		return nil
	})

	// 4. Analyst ratings.
	g.Go(func() error {
		ratings, err := a.calendar.GetRatings(gctx, symbol)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("ratings: %w", err))
			mu.Unlock()
			return nil
		}
		mu.Lock()
		sc.Ratings = ratings
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return sc, err
	}

	// A usable context needs at least one populated section.
	if sc.Quote == nil && len(sc.News) == 0 && len(sc.Earnings) == 0 && len(sc.Ratings) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all sources failed for %s: %w", symbol, errors.Join(errs...))
	}

	return sc, nil
}
