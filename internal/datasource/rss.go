package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/marketprose/marketprose/pkg/models"
	"github.com/marketprose/marketprose/pkg/utils"
)

// RSSSource is one configured market-news RSS feed.
type RSSSource struct {
	Name   string
	RSSURL string
}

// DefaultRSSSources lists the market-news feeds polled when the primary
// news API returns nothing for a ticker.
var DefaultRSSSources = []RSSSource{
	{
		Name:   "Benzinga",
		RSSURL: "https://www.benzinga.com/feed",
	},
	{
		Name:   "MarketWatch Top Stories",
		RSSURL: "https://feeds.content.dowjones.io/public/rss/mw_topstories",
	},
	{
		Name:   "CNBC Markets",
		RSSURL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=20910258",
	},
}

// RSSNews is the RSS-backed news fallback. It polls configured feeds and
// filters items by ticker mention.
type RSSNews struct {
	sources []RSSSource
	cache   *Cache
	limiter *RateLimiter
	parser  *gofeed.Parser
}

// NewRSSNews creates the fallback news source with the default feeds.
func NewRSSNews() *RSSNews {
	return NewRSSNewsWithSources(DefaultRSSSources)
}

// NewRSSNewsWithSources creates the fallback news source with custom feeds.
func NewRSSNewsWithSources(sources []RSSSource) *RSSNews {
	return &RSSNews{
		sources: sources,
		cache:   NewCache(10 * time.Minute),
		limiter: NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  gofeed.NewParser(),
	}
}

// Name returns the data source name.
func (n *RSSNews) Name() string { return "RSS" }

// MarketNews returns recent market news from all configured feeds, newest
// first. Failed feeds are skipped rather than failing the whole fetch.
func (n *RSSNews) MarketNews(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	cacheKey := fmt.Sprintf("rss:market:%d", limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	var all []models.NewsArticle
	for _, src := range n.sources {
		articles, err := n.fetchFeed(ctx, src)
		if err != nil {
			continue
		}
		all = append(all, articles...)
	}

	sortArticlesByDate(all)

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	n.cache.Set(cacheKey, all)
	return all, nil
}

// SearchNews filters market news down to items mentioning the ticker. The
// signature matches the primary news source so callers can swap them.
func (n *RSSNews) SearchNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	symbol := utils.NormalizeTicker(ticker)

	cacheKey := fmt.Sprintf("rss:stock:%s:%d", symbol, limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	all, err := n.MarketNews(ctx, 0)
	if err != nil {
		return nil, err
	}

	var filtered []models.NewsArticle
	for _, a := range all {
		if mentionsTicker(a.Title+" "+a.Teaser, symbol) {
			filtered = append(filtered, a)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	n.cache.Set(cacheKey, filtered)
	return filtered, nil
}

// fetchFeed parses one RSS feed into articles.
func (n *RSSNews) fetchFeed(ctx context.Context, src RSSSource) ([]models.NewsArticle, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(src.RSSURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:  strings.TrimSpace(item.Title),
			URL:    item.Link,
			Source: src.Name,
			Teaser: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		if a.Title == "" || a.URL == "" {
			continue
		}
		articles = append(articles, a)
	}

	return articles, nil
}

// cleanHTML strips HTML tags from feed descriptions using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// mentionsTicker checks for the symbol as a standalone token, so "A" does
// not match every article containing the letter. A single-letter symbol
// that opens a sentence ahead of a lowercase word is read as the English
// article, not the ticker.
func mentionsTicker(text, symbol string) bool {
	upper := strings.ToUpper(text)
	idx := 0
	for {
		i := strings.Index(upper[idx:], symbol)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(symbol)
		beforeOK := start == 0 || !isWordByte(upper[start-1])
		afterOK := end == len(upper) || !isWordByte(upper[end])
		if beforeOK && afterOK && !articleReading(text, start, end) {
			return true
		}
		idx = end
	}
}

// articleReading reports whether a one-letter match at [start,end) is more
// plausibly the article "A" than a ticker.
func articleReading(text string, start, end int) bool {
	if end-start != 1 {
		return false
	}
	if !atSentenceStart(text, start) {
		return false
	}
	if end+1 >= len(text) || text[end] != ' ' {
		return false
	}
	c := text[end+1]
	return c >= 'a' && c <= 'z'
}

// atSentenceStart reports whether position start opens the text or follows
// sentence-ending punctuation, skipping whitespace and quotes.
func atSentenceStart(text string, start int) bool {
	for i := start - 1; i >= 0; i-- {
		switch text[i] {
		case ' ', '\t', '\n', '"', '\'':
			continue
		case '.', '!', '?', ':':
			return true
		default:
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// sortArticlesByDate sorts articles by published date (newest first).
// Insertion sort is fine at feed sizes.
func sortArticlesByDate(articles []models.NewsArticle) {
	for i := 1; i < len(articles); i++ {
		key := articles[i]
		j := i - 1
		for j >= 0 && articles[j].PublishedAt.Before(key.PublishedAt) {
			articles[j+1] = articles[j]
			j--
		}
		articles[j+1] = key
	}
}
