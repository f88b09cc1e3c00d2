package story

import (
	"context"
	"fmt"
	"time"

	"github.com/marketprose/marketprose/internal/config"
	"github.com/marketprose/marketprose/internal/datasource"
	"github.com/marketprose/marketprose/internal/htmldoc"
	"github.com/marketprose/marketprose/internal/llm"
	"github.com/marketprose/marketprose/pkg/models"
	"github.com/marketprose/marketprose/pkg/utils"
)

// ChatClient is the LLM surface the writer needs. *llm.Router satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error)
}

// Writer produces article fragments from fetched market data. Deterministic
// fragments (price action, analyst ratings) never touch the LLM; drafted
// fragments go through the chat client and then the htmldoc repair passes.
type Writer struct {
	chat           ChatClient
	attribution    string
	maxLinkRetries int
	contextLinks   int
	chatOpts       *llm.ChatOptions
	now            func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock injects the clock used for session classification. Tests pass
// fixed instants; production uses the Eastern wall clock.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// NewWriter builds a writer from config. chat may be nil, in which case
// only the deterministic fragments are available.
func NewWriter(chat ChatClient, cfg *config.Config, opts ...WriterOption) *Writer {
	w := &Writer{
		chat:           chat,
		attribution:    cfg.Editorial.Attribution,
		maxLinkRetries: cfg.Editorial.MaxLinkRetries,
		contextLinks:   cfg.Editorial.ContextLinks,
		chatOpts: &llm.ChatOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
		now: utils.NowEastern,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PriceActionLine renders the canonical price-action sentence for the
// current session. sc.Quote may be nil.
func (w *Writer) PriceActionLine(sc *datasource.StoryContext) string {
	t := w.now()
	return ComposePriceAction(sc.Ticker, sc.Quote, utils.Session(t), utils.TradingDay(t), w.attribution)
}

// Lead drafts the opening paragraph for a story.
func (w *Writer) Lead(ctx context.Context, sc *datasource.StoryContext) (string, error) {
	return w.draft(ctx, leadPrompt(sc, w.PriceActionLine(sc)))
}

// QuickStory drafts a short multi-paragraph story.
func (w *Writer) QuickStory(ctx context.Context, sc *datasource.StoryContext) (string, error) {
	return w.draft(ctx, quickStoryPrompt(sc, w.PriceActionLine(sc)))
}

// AddContext weaves linked background coverage into an existing story. The
// output is guaranteed to carry every hyperlink the input carried plus one
// per context article: the LLM is re-prompted with the exact link deficit
// up to the configured retry cap, after which any still-missing link is
// inserted programmatically at a sentence boundary. warning is non-empty
// when programmatic insertion had to step in.
func (w *Writer) AddContext(ctx context.Context, existing string, articles []models.NewsArticle) (out, warning string, err error) {
	picked := pickContextArticles(articles, w.contextLinks)
	if len(picked) == 0 {
		return existing, "no usable context articles", nil
	}

	prompt := contextPrompt(existing, picked)
	candidate, err := w.draft(ctx, prompt)
	if err != nil {
		return "", "", err
	}

	required := requiredLinks(existing, picked)

	for attempt := 0; attempt <= w.maxLinkRetries; attempt++ {
		missing := missingLinks(candidate, required)
		if len(missing) == 0 {
			return candidate, "", nil
		}
		if attempt == w.maxLinkRetries {
			break
		}
		candidate, err = w.draft(ctx, prompt+linkDeficitAmendment(missing))
		if err != nil {
			return "", "", err
		}
	}

	// Retries exhausted: restore what text-matching can, then splice the
	// rest in as standalone sentences.
	candidate, _, _ = htmldoc.RestoreAnchors(existing, candidate)
	inserted := 0
	for _, link := range missingLinks(candidate, required) {
		sentence := fmt.Sprintf("Also read: <a href=%q>%s</a>.", link.URL, link.AnchorText)
		candidate = htmldoc.InsertAtSentenceBoundary(candidate, sentence)
		inserted++
	}

	warning = ""
	if inserted > 0 {
		warning = fmt.Sprintf("%d link(s) inserted programmatically after retries", inserted)
	}
	return candidate, warning, nil
}

// SEOSubheads inserts section headings into a story. A structural check
// failure is not an error: the original text comes back with a warning, so
// broken output is never published.
func (w *Writer) SEOSubheads(ctx context.Context, existing string) (out, warning string, err error) {
	candidate, err := w.draft(ctx, subheadsPrompt(existing))
	if err != nil {
		return "", "", err
	}

	repaired, lost, warn := htmldoc.RestoreAnchors(existing, candidate)
	if warn {
		return existing, fmt.Sprintf("headings discarded: edit dropped %d hyperlink(s)", len(lost)), nil
	}
	if htmldoc.CountAnchors(repaired) < htmldoc.CountAnchors(existing) {
		return existing, "headings discarded: hyperlink count decreased", nil
	}
	return repaired, "", nil
}

// AnalystRatingsSection renders a deterministic analyst-ratings fragment.
// No LLM involvement: ratings copy is formulaic and must not drift.
func (w *Writer) AnalystRatingsSection(ratings []models.AnalystRating) string {
	if len(ratings) == 0 {
		return ""
	}
	if len(ratings) > 3 {
		ratings = ratings[:3]
	}

	out := "<h2>Analyst Ratings</h2>\n"
	for _, r := range ratings {
		out += ratingSentence(r) + "\n"
	}
	return out[:len(out)-1]
}

// ratingSentence renders one analyst action as a sentence.
func ratingSentence(r models.AnalystRating) string {
	who := r.Firm
	if r.Analyst != "" {
		who = fmt.Sprintf("%s analyst %s", r.Firm, r.Analyst)
	}

	action := actionVerb(r.Action)
	s := fmt.Sprintf("%s %s a %s rating", who, action, r.RatingCurrent)
	if r.RatingPrior != "" && r.RatingPrior != r.RatingCurrent {
		s = fmt.Sprintf("%s %s the stock from %s to %s", who, action, r.RatingPrior, r.RatingCurrent)
	}

	if r.PTCurrent != nil {
		switch {
		case r.PTPrior != nil && *r.PTPrior < *r.PTCurrent:
			s += fmt.Sprintf(" and raised the price target from $%s to $%s",
				utils.FormatPrice(*r.PTPrior), utils.FormatPrice(*r.PTCurrent))
		case r.PTPrior != nil && *r.PTPrior > *r.PTCurrent:
			s += fmt.Sprintf(" and lowered the price target from $%s to $%s",
				utils.FormatPrice(*r.PTPrior), utils.FormatPrice(*r.PTCurrent))
		default:
			s += fmt.Sprintf(" with a $%s price target", utils.FormatPrice(*r.PTCurrent))
		}
	}

	if !r.Date.IsZero() {
		s += " on " + r.Date.Format("Jan. 2")
	}
	return s + "."
}

// actionVerb maps calendar action labels to past-tense verbs.
func actionVerb(action string) string {
	switch action {
	case "Upgrades":
		return "upgraded"
	case "Downgrades":
		return "downgraded"
	case "Initiates", "Initiates Coverage On":
		return "initiated coverage with"
	case "Reiterates":
		return "reiterated"
	default:
		return "maintained"
	}
}

// draft runs one chat call and applies the standard cleanup passes.
func (w *Writer) draft(ctx context.Context, userPrompt string) (string, error) {
	if w.chat == nil {
		return "", llm.ErrNoProviders
	}

	resp, err := w.chat.Chat(ctx, []llm.Message{
		llm.SystemMessage(newswriterSystemPrompt),
		llm.UserMessage(userPrompt),
	}, w.chatOpts)
	if err != nil {
		return "", fmt.Errorf("draft: %w", err)
	}
	return htmldoc.Clean(resp.Content), nil
}

// pickContextArticles selects up to n linkable, non-press-release articles.
func pickContextArticles(articles []models.NewsArticle, n int) []models.NewsArticle {
	var picked []models.NewsArticle
	for _, a := range articles {
		if a.URL == "" || a.Title == "" || a.IsPressRelease() {
			continue
		}
		picked = append(picked, a)
		if len(picked) == n {
			break
		}
	}
	return picked
}

// requiredLinks is the full set a context edit must preserve: everything
// already linked in the story plus one link per picked article.
func requiredLinks(existing string, picked []models.NewsArticle) []models.Hyperlink {
	links := htmldoc.Anchors(existing)
	for _, a := range picked {
		links = append(links, models.Hyperlink{URL: a.URL, AnchorText: a.Title})
	}
	return links
}

// missingLinks returns the required links absent from the candidate,
// matched by URL.
func missingLinks(candidate string, required []models.Hyperlink) []models.Hyperlink {
	have := make(map[string]int)
	for _, l := range htmldoc.Anchors(candidate) {
		have[l.URL]++
	}

	var missing []models.Hyperlink
	for _, l := range required {
		if have[l.URL] > 0 {
			have[l.URL]--
			continue
		}
		missing = append(missing, l)
	}
	return missing
}
