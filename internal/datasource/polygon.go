package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/marketprose/marketprose/pkg/models"
	"github.com/marketprose/marketprose/pkg/utils"
)

// Polygon is the snapshot-based quote fallback used when the primary quote
// source returns nothing for a ticker.
type Polygon struct {
	apiKey  string
	baseURL string
	limiter *RateLimiter
}

// NewPolygon creates a Polygon source against the given base URL.
func NewPolygon(apiKey, baseURL string) *Polygon {
	return &Polygon{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: NewRateLimiter(4, time.Second),
	}
}

// Name returns the data source name.
func (p *Polygon) Name() string { return "Polygon" }

type polygonSnapshot struct {
	Status string `json:"status"`
	Ticker struct {
		Ticker           string  `json:"ticker"`
		TodaysChangePerc float64 `json:"todaysChangePerc"`
		Updated          int64   `json:"updated"`
		Day              struct {
			Close  float64 `json:"c"`
			Volume float64 `json:"v"`
		} `json:"day"`
		PrevDay struct {
			Close float64 `json:"c"`
		} `json:"prevDay"`
		LastTrade struct {
			Price float64 `json:"p"`
		} `json:"lastTrade"`
	} `json:"ticker"`
}

// GetQuote fetches a single-ticker snapshot and normalizes it into a Quote.
// An absent or zeroed snapshot yields ErrNoData.
func (p *Polygon) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol := utils.NormalizeTicker(ticker)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/v2/snapshot/locale/us/markets/stocks/tickers/%s?apiKey=%s",
		p.baseURL, url.PathEscape(symbol), url.QueryEscape(p.apiKey))
	body, _, err := doGet(ctx, u, nil)
	if err != nil {
		if _, ok := err.(*ErrHTTP); ok {
			return nil, fmt.Errorf("snapshot %s: %w", symbol, ErrNoData)
		}
		return nil, fmt.Errorf("snapshot %s: %w", symbol, err)
	}
	defer body.Close()

	var snap polygonSnapshot
	if err := json.NewDecoder(body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", symbol, err)
	}
	if snap.Ticker.Ticker == "" {
		return nil, fmt.Errorf("snapshot %s: %w", symbol, ErrNoData)
	}

	q := &models.Quote{Symbol: symbol}
	if px := snap.Ticker.LastTrade.Price; px > 0 {
		q.LastPrice = models.Float(px)
	} else if px := snap.Ticker.Day.Close; px > 0 {
		q.LastPrice = models.Float(px)
	}
	if prev := snap.Ticker.PrevDay.Close; prev > 0 {
		q.PreviousClose = models.Float(prev)
	}
	q.ChangePercent = models.Float(snap.Ticker.TodaysChangePerc)
	if v := snap.Ticker.Day.Volume; v > 0 {
		q.Volume = models.Int(int64(v))
	}
	if snap.Ticker.Updated > 0 {
		// Snapshots carry nanosecond epochs.
		q.AsOf = time.Unix(0, snap.Ticker.Updated).UTC()
	}

	if q.LastPrice == nil && q.PreviousClose == nil {
		return nil, fmt.Errorf("snapshot %s: %w", symbol, ErrNoData)
	}

	applyChangePolicy(q)
	return q, nil
}
