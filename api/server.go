// Package api provides the HTTP REST API server for marketprose.
//
// Every endpoint is stateless: parse input, fetch market data, compose or
// draft the requested fragment, post-process, respond with JSON. Errors
// are converted to JSON error payloads at the request boundary; nothing
// is fatal to the process.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/marketprose/marketprose/internal/config"
	"github.com/marketprose/marketprose/internal/datasource"
	"github.com/marketprose/marketprose/internal/llm"
	"github.com/marketprose/marketprose/internal/story"
	"github.com/marketprose/marketprose/pkg/models"
	"github.com/marketprose/marketprose/pkg/utils"
)

// DataFetcher is the market-data surface the handlers need.
// *datasource.Aggregator satisfies it.
type DataFetcher interface {
	FetchQuote(ctx context.Context, ticker string) (*models.Quote, error)
	FetchNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error)
	FetchRatings(ctx context.Context, ticker string) ([]models.AnalystRating, error)
	FetchStoryContext(ctx context.Context, ticker string) (*datasource.StoryContext, error)
}

// StoryWriter is the editorial surface the handlers need. *story.Writer
// satisfies it.
type StoryWriter interface {
	PriceActionLine(sc *datasource.StoryContext) string
	Lead(ctx context.Context, sc *datasource.StoryContext) (string, error)
	QuickStory(ctx context.Context, sc *datasource.StoryContext) (string, error)
	AddContext(ctx context.Context, existing string, articles []models.NewsArticle) (out, warning string, err error)
	SEOSubheads(ctx context.Context, existing string) (out, warning string, err error)
	AnalystRatingsSection(ratings []models.AnalystRating) string
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	data   DataFetcher
	writer StoryWriter
	llm    *llm.Router // nil when no provider keys are configured
	wsHub  *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
// Missing LLM keys are not fatal: the deterministic endpoints still work,
// and the drafting endpoints report the missing provider per request.
func NewServer(cfg *config.Config) (*Server, error) {
	agg := datasource.NewAggregator(cfg)

	var chat story.ChatClient
	router, err := llm.NewRouterFromConfig(cfg)
	switch {
	case err == nil:
		chat = router
	case errors.Is(err, llm.ErrNoProviders):
		log.Println("api: no LLM provider keys configured, drafting endpoints disabled")
		router = nil
	default:
		return nil, fmt.Errorf("LLM setup failed: %w", err)
	}

	srv := &Server{
		cfg:    cfg,
		data:   agg,
		writer: story.NewWriter(chat, cfg),
		llm:    router,
		wsHub:  NewWSHub(),
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// NewServerWithDeps builds a server over explicit dependencies, for tests.
func NewServerWithDeps(cfg *config.Config, data DataFetcher, writer StoryWriter) *Server {
	srv := &Server{
		cfg:    cfg,
		data:   data,
		writer: writer,
		wsHub:  NewWSHub(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/quote/{ticker}", s.handleQuote)
		r.Post("/price-action", s.handlePriceAction)

		r.Route("/story", func(r chi.Router) {
			r.Post("/lead", s.handleLead)
			r.Post("/quick", s.handleQuickStory)
			r.Post("/context", s.handleAddContext)
			r.Post("/subheads", s.handleSubheads)
			r.Post("/ratings", s.handleRatings)
			r.Post("/assemble", s.handleAssemble)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request/response shapes
// ============================================================

type tickerRequest struct {
	Ticker string `json:"ticker"`
}

type editRequest struct {
	Ticker        string `json:"ticker,omitempty"`
	ExistingStory string `json:"existingStory"`
}

type assembleRequest struct {
	Fragments []models.Fragment `json:"fragments"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type priceActionResponse struct {
	PriceAction string `json:"priceAction"`
}

type storyResponse struct {
	Story   string `json:"story"`
	Success bool   `json:"success"`
	Warning string `json:"warning,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := utils.NowEastern()
	data := map[string]interface{}{
		"status":      "ok",
		"session":     utils.Session(now),
		"trading_day": utils.TradingDay(now),
		"time_et":     utils.FormatDateTimeEastern(now),
	}
	if s.llm != nil {
		providers := map[string]string{}
		for name, err := range s.llm.HealthCheck(r.Context()) {
			if err != nil {
				providers[name] = err.Error()
			} else {
				providers[name] = "ok"
			}
		}
		data["llm_providers"] = providers
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	quote, err := s.data.FetchQuote(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, datasource.ErrNoData) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no data for ticker %s", utils.NormalizeTicker(ticker)))
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// handlePriceAction composes the canonical price-action sentence. A ticker
// with no quote data is not an error here: the composer falls back to the
// generic numberless sentence.
func (s *Server) handlePriceAction(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTicker(w, r)
	if !ok {
		return
	}

	sc := &datasource.StoryContext{Ticker: utils.NormalizeTicker(req.Ticker)}
	quote, err := s.data.FetchQuote(r.Context(), req.Ticker)
	switch {
	case err == nil:
		sc.Quote = quote
	case errors.Is(err, datasource.ErrNoData):
		// Generic sentence below.
	default:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	line := s.writer.PriceActionLine(sc)

	s.wsHub.Broadcast(WSMessage{
		Type: "price_action",
		Data: map[string]interface{}{"ticker": sc.Ticker, "priceAction": line},
	})

	writeJSON(w, http.StatusOK, priceActionResponse{PriceAction: line})
}

func (s *Server) handleLead(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTicker(w, r)
	if !ok {
		return
	}

	sc, err := s.data.FetchStoryContext(r.Context(), req.Ticker)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	lead, err := s.writer.Lead(r.Context(), sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.broadcastStory(sc.Ticker, "lead")
	writeJSON(w, http.StatusOK, map[string]string{"lead": lead})
}

func (s *Server) handleQuickStory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTicker(w, r)
	if !ok {
		return
	}

	sc, err := s.data.FetchStoryContext(r.Context(), req.Ticker)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	text, err := s.writer.QuickStory(r.Context(), sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.broadcastStory(sc.Ticker, "quick")
	writeJSON(w, http.StatusOK, storyResponse{Story: text, Success: true})
}

// handleAddContext weaves linked background coverage into an existing
// story. Hyperlink integrity is guaranteed by the writer; a degraded
// repair surfaces as a warning, never a failure.
func (s *Server) handleAddContext(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ticker == "" || req.ExistingStory == "" {
		writeError(w, http.StatusBadRequest, "ticker and existingStory are required")
		return
	}

	articles, err := s.data.FetchNews(r.Context(), req.Ticker, s.cfg.Editorial.ContextLinks*2)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	out, warning, err := s.writer.AddContext(r.Context(), req.ExistingStory, articles)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.broadcastStory(utils.NormalizeTicker(req.Ticker), "context")
	writeJSON(w, http.StatusOK, storyResponse{Story: out, Success: warning == "", Warning: warning})
}

// handleSubheads inserts SEO headings. On a structural-integrity failure
// the writer hands back the original text and the response carries
// success=false with a warning; the request itself still succeeds.
func (s *Server) handleSubheads(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ExistingStory == "" {
		writeError(w, http.StatusBadRequest, "existingStory is required")
		return
	}

	out, warning, err := s.writer.SEOSubheads(r.Context(), req.ExistingStory)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, storyResponse{Story: out, Success: warning == "", Warning: warning})
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTicker(w, r)
	if !ok {
		return
	}

	ratings, err := s.data.FetchRatings(r.Context(), req.Ticker)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	section := s.writer.AnalystRatingsSection(ratings)
	if section == "" {
		writeJSON(w, http.StatusOK, storyResponse{Success: false, Warning: "no recent analyst ratings"})
		return
	}
	writeJSON(w, http.StatusOK, storyResponse{Story: section, Success: true})
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	var req assembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Fragments) == 0 {
		writeError(w, http.StatusBadRequest, "fragments are required")
		return
	}

	article := models.Article{Fragments: req.Fragments}
	writeJSON(w, http.StatusOK, storyResponse{Story: article.Render(), Success: true})
}

// ============================================================
// Helpers
// ============================================================

func decodeTicker(w http.ResponseWriter, r *http.Request) (tickerRequest, bool) {
	var req tickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return req, false
	}
	return req, true
}

func (s *Server) broadcastStory(ticker, kind string) {
	s.wsHub.Broadcast(WSMessage{
		Type: "story_generated",
		Data: map[string]interface{}{"ticker": ticker, "kind": kind},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
