package story

import (
	"fmt"
	"strings"

	"github.com/marketprose/marketprose/internal/datasource"
	"github.com/marketprose/marketprose/pkg/models"
)

// newswriterSystemPrompt frames every drafting call. Hyperlink and heading
// handling rules are stated up front because chat models drop markup when
// rewriting prose.
const newswriterSystemPrompt = `You are a financial newswriter producing concise, neutral market copy for a news wire.

Rules:
- Write in AP style. Short sentences, active voice, no hype.
- Never invent numbers, quotes, or events not present in the provided data.
- Preserve every HTML anchor tag (<a href="...">...</a>) from the input text exactly as given. Do not remove, rewrite, or relocate hyperlinks.
- Use <h2> tags for section headings. Do not use markdown.
- Return only the article text, with no preamble and no code fences.`

// leadPrompt asks for the opening paragraph of a story.
func leadPrompt(sc *datasource.StoryContext, priceAction string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a one-paragraph lead for a story about %s.\n\n", sc.Ticker)
	writeContextBlock(&b, sc)
	if priceAction != "" {
		fmt.Fprintf(&b, "Price action line to close the paragraph with, verbatim:\n%s\n", priceAction)
	}
	b.WriteString("\nReturn only the lead paragraph.")
	return b.String()
}

// quickStoryPrompt asks for a short multi-paragraph story.
func quickStoryPrompt(sc *datasource.StoryContext, priceAction string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short market story (3-5 paragraphs) about %s: what is happening, why it matters, and what is driving the move.\n\n", sc.Ticker)
	writeContextBlock(&b, sc)
	if priceAction != "" {
		fmt.Fprintf(&b, "End the story with this price action line, verbatim:\n%s\n", priceAction)
	}
	return b.String()
}

// contextPrompt asks the model to weave linked background articles into an
// existing story.
func contextPrompt(existing string, articles []models.NewsArticle) string {
	var b strings.Builder
	b.WriteString("Add brief background context to the story below by weaving in references to the related coverage. Each reference must keep its hyperlink: wrap the article's headline (or a natural shortened form of it) in its anchor tag.\n\nRelated coverage:\n")
	for _, a := range articles {
		fmt.Fprintf(&b, "- <a href=%q>%s</a>\n", a.URL, a.Title)
	}
	b.WriteString("\nStory:\n")
	b.WriteString(existing)
	b.WriteString("\n\nReturn the full story with the context added.")
	return b.String()
}

// subheadsPrompt asks for SEO section headings inserted into an existing story.
func subheadsPrompt(existing string) string {
	return "Insert 2-4 SEO-friendly <h2> section headings into the story below at natural section breaks. Do not change, remove, or reorder any existing text or hyperlink.\n\nStory:\n" + existing + "\n\nReturn the full story with headings inserted."
}

// linkDeficitAmendment names the exact hyperlink shortfall for a retry.
// The count is stated explicitly; vague "keep the links" phrasing has not
// been enough to stop models from dropping anchors.
func linkDeficitAmendment(missing []models.Hyperlink) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\nYour previous answer dropped %d required hyperlink(s). The final text must contain all of these anchor tags exactly as written:\n", len(missing))
	for _, l := range missing {
		fmt.Fprintf(&b, "- <a href=%q>%s</a>\n", l.URL, l.AnchorText)
	}
	return b.String()
}

// writeContextBlock renders the fetched market data as a prompt section.
func writeContextBlock(b *strings.Builder, sc *datasource.StoryContext) {
	if sc.Quote != nil {
		q := sc.Quote
		fmt.Fprintf(b, "Quote for %s", q.Symbol)
		if q.CompanyName != "" {
			fmt.Fprintf(b, " (%s)", q.CompanyName)
		}
		b.WriteString(":\n")
		if q.LastPrice != nil {
			fmt.Fprintf(b, "- last price: %.2f\n", *q.LastPrice)
		}
		if q.ChangePercent != nil {
			fmt.Fprintf(b, "- change: %.2f%%\n", *q.ChangePercent)
		}
		if q.Volume != nil {
			fmt.Fprintf(b, "- volume: %d\n", *q.Volume)
		}
		b.WriteString("\n")
	}

	if len(sc.News) > 0 {
		b.WriteString("Recent headlines:\n")
		for i, a := range sc.News {
			if i >= 5 {
				break
			}
			fmt.Fprintf(b, "- %s", a.Title)
			if a.Teaser != "" {
				fmt.Fprintf(b, " (%s)", truncate(a.Teaser, 200))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(sc.Earnings) > 0 {
		e := sc.Earnings[0]
		fmt.Fprintf(b, "Next earnings: %s", e.Date.Format("Jan 2, 2006"))
		if e.EPSEstimate != nil {
			fmt.Fprintf(b, ", EPS estimate %.2f", *e.EPSEstimate)
		}
		b.WriteString("\n\n")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
