package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marketprose/marketprose/internal/config"
	"github.com/marketprose/marketprose/internal/datasource"
	"github.com/marketprose/marketprose/pkg/models"
)

// fakeFetcher is a scriptable DataFetcher.
type fakeFetcher struct {
	quote    *models.Quote
	quoteErr error
	news     []models.NewsArticle
	newsErr  error
	ratings  []models.AnalystRating
	sc       *datasource.StoryContext
	scErr    error
}

func (f *fakeFetcher) FetchQuote(_ context.Context, _ string) (*models.Quote, error) {
	return f.quote, f.quoteErr
}
func (f *fakeFetcher) FetchNews(_ context.Context, _ string, _ int) ([]models.NewsArticle, error) {
	return f.news, f.newsErr
}
func (f *fakeFetcher) FetchRatings(_ context.Context, _ string) ([]models.AnalystRating, error) {
	return f.ratings, nil
}
func (f *fakeFetcher) FetchStoryContext(_ context.Context, _ string) (*datasource.StoryContext, error) {
	return f.sc, f.scErr
}

// fakeWriter is a scriptable StoryWriter.
type fakeWriter struct {
	priceAction string
	lead        string
	story       string
	contextOut  string
	contextWarn string
	subheadsOut string
	subheadWarn string
	ratingsOut  string
	err         error
}

func (f *fakeWriter) PriceActionLine(_ *datasource.StoryContext) string { return f.priceAction }
func (f *fakeWriter) Lead(_ context.Context, _ *datasource.StoryContext) (string, error) {
	return f.lead, f.err
}
func (f *fakeWriter) QuickStory(_ context.Context, _ *datasource.StoryContext) (string, error) {
	return f.story, f.err
}
func (f *fakeWriter) AddContext(_ context.Context, _ string, _ []models.NewsArticle) (string, string, error) {
	return f.contextOut, f.contextWarn, f.err
}
func (f *fakeWriter) SEOSubheads(_ context.Context, _ string) (string, string, error) {
	return f.subheadsOut, f.subheadWarn, f.err
}
func (f *fakeWriter) AnalystRatingsSection(_ []models.AnalystRating) string { return f.ratingsOut }

func newTestServer(data DataFetcher, writer StoryWriter) *Server {
	cfg := &config.Config{
		Editorial: config.EditorialConfig{ContextLinks: 3},
	}
	return NewServerWithDeps(cfg, data, writer)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeFetcher{}, &fakeWriter{})
	rec := doRequest(t, srv, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["trading_day"] == "Saturday" || body["trading_day"] == "Sunday" {
		t.Errorf("trading_day = %v, weekends must collapse", body["trading_day"])
	}
}

func TestPriceActionHappyPath(t *testing.T) {
	data := &fakeFetcher{quote: &models.Quote{Symbol: "AAPL", LastPrice: models.Float(198.45), ChangePercent: models.Float(1.23)}}
	writer := &fakeWriter{priceAction: "AAPL shares rose 1.23% to $198.45 during regular trading hours on Friday, according to Benzinga Pro data."}
	srv := newTestServer(data, writer)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/price-action", map[string]string{"ticker": "AAPL"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body priceActionResponse
	decodeBody(t, rec, &body)
	if body.PriceAction != writer.priceAction {
		t.Errorf("priceAction = %q", body.PriceAction)
	}
}

func TestPriceActionNoDataIsNotAnError(t *testing.T) {
	data := &fakeFetcher{quoteErr: datasource.ErrNoData}
	writer := &fakeWriter{priceAction: "ZZZZ shares were trading during regular market hours on Friday, according to Benzinga Pro data."}
	srv := newTestServer(data, writer)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/price-action", map[string]string{"ticker": "ZZZZ"})
	if rec.Code != http.StatusOK {
		t.Fatalf("no-data ticker must yield the generic sentence, got status %d", rec.Code)
	}

	var body priceActionResponse
	decodeBody(t, rec, &body)
	if !strings.Contains(body.PriceAction, "were trading during regular market hours") {
		t.Errorf("priceAction = %q", body.PriceAction)
	}
}

func TestPriceActionUpstreamFailure(t *testing.T) {
	data := &fakeFetcher{quoteErr: errors.New("connection refused")}
	srv := newTestServer(data, &fakeWriter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/price-action", map[string]string{"ticker": "AAPL"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for upstream failure", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error == "" {
		t.Error("error payload missing")
	}
}

func TestPriceActionMissingTicker(t *testing.T) {
	srv := newTestServer(&fakeFetcher{}, &fakeWriter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/price-action", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuoteNotFound(t *testing.T) {
	srv := newTestServer(&fakeFetcher{quoteErr: datasource.ErrNoData}, &fakeWriter{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quote/ZZZZ", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestQuoteFound(t *testing.T) {
	data := &fakeFetcher{quote: &models.Quote{Symbol: "AAPL", LastPrice: models.Float(198.45)}}
	srv := newTestServer(data, &fakeWriter{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quote/AAPL", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var q models.Quote
	decodeBody(t, rec, &q)
	if q.Symbol != "AAPL" {
		t.Errorf("Symbol = %q", q.Symbol)
	}
}

func TestLead(t *testing.T) {
	data := &fakeFetcher{sc: &datasource.StoryContext{Ticker: "AAPL"}}
	writer := &fakeWriter{lead: "Apple shares climbed Friday."}
	srv := newTestServer(data, writer)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/story/lead", map[string]string{"ticker": "AAPL"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["lead"] != writer.lead {
		t.Errorf("lead = %q", body["lead"])
	}
}

func TestLeadLLMFailure(t *testing.T) {
	data := &fakeFetcher{sc: &datasource.StoryContext{Ticker: "AAPL"}}
	writer := &fakeWriter{err: errors.New("all providers failed")}
	srv := newTestServer(data, writer)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/story/lead", map[string]string{"ticker": "AAPL"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for LLM failure", rec.Code)
	}
}

func TestAddContextWarningSurfaces(t *testing.T) {
	data := &fakeFetcher{news: []models.NewsArticle{{Title: "Story", URL: "https://example.com/a"}}}
	writer := &fakeWriter{
		contextOut:  "Story text with links.",
		contextWarn: "1 link(s) inserted programmatically after retries",
	}
	srv := newTestServer(data, writer)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/story/context", map[string]string{
		"ticker":        "AAPL",
		"existingStory": "Story text.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body storyResponse
	decodeBody(t, rec, &body)
	if body.Success {
		t.Error("success must be false when a warning is present")
	}
	if body.Warning == "" {
		t.Error("warning missing")
	}
}

func TestAddContextRequiresStory(t *testing.T) {
	srv := newTestServer(&fakeFetcher{}, &fakeWriter{})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/story/context", map[string]string{"ticker": "AAPL"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSubheadsStructuralFailureStaysOK(t *testing.T) {
	writer := &fakeWriter{
		subheadsOut: "The original text.",
		subheadWarn: "headings discarded: edit dropped 1 hyperlink(s)",
	}
	srv := newTestServer(&fakeFetcher{}, writer)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/story/subheads", map[string]string{
		"existingStory": "The original text.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("structural failure must not be an HTTP error, got %d", rec.Code)
	}
	var body storyResponse
	decodeBody(t, rec, &body)
	if body.Story != "The original text." {
		t.Errorf("story = %q, want original returned", body.Story)
	}
	if body.Success || body.Warning == "" {
		t.Errorf("want success=false with warning, got %+v", body)
	}
}

func TestRatings(t *testing.T) {
	data := &fakeFetcher{ratings: []models.AnalystRating{{Firm: "Sterling"}}}
	writer := &fakeWriter{ratingsOut: "<h2>Analyst Ratings</h2>\nSterling maintained a Buy rating."}
	srv := newTestServer(data, writer)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/story/ratings", map[string]string{"ticker": "AAPL"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body storyResponse
	decodeBody(t, rec, &body)
	if !strings.HasPrefix(body.Story, "<h2>Analyst Ratings</h2>") {
		t.Errorf("story = %q", body.Story)
	}
}

func TestAssemble(t *testing.T) {
	srv := newTestServer(&fakeFetcher{}, &fakeWriter{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/story/assemble", assembleRequest{
		Fragments: []models.Fragment{
			{Type: models.FragmentHeadline, Text: "Apple Climbs", Enabled: true},
			{Type: models.FragmentTechnical, Text: "Disabled text", Enabled: false},
			{Type: models.FragmentPriceAction, Text: "AAPL shares rose 1.23%.", Enabled: true},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body storyResponse
	decodeBody(t, rec, &body)
	want := "Apple Climbs\n\nAAPL shares rose 1.23%."
	if body.Story != want {
		t.Errorf("story = %q, want %q", body.Story, want)
	}
}

func TestAssembleEmpty(t *testing.T) {
	srv := newTestServer(&fakeFetcher{}, &fakeWriter{})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/story/assemble", assembleRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
