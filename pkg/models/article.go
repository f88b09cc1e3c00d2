package models

import "strings"

// FragmentType identifies one modular piece of an article under assembly.
type FragmentType string

const (
	FragmentHeadline       FragmentType = "headline"
	FragmentLead           FragmentType = "lead"
	FragmentTechnical      FragmentType = "technical"
	FragmentAnalystRatings FragmentType = "analystRatings"
	FragmentEdgeRatings    FragmentType = "edgeRatings"
	FragmentNewsContext    FragmentType = "newsContext"
	FragmentPriceAction    FragmentType = "priceAction"
	FragmentAlsoReadLink   FragmentType = "alsoReadLink"
)

// Fragment is a single typed, independently toggleable article piece.
type Fragment struct {
	Type    FragmentType `json:"type"`
	Text    string       `json:"text"`
	Enabled bool         `json:"enabled"`
}

// Article is an ordered sequence of fragments. Order is significant; the
// rendered story is the enabled fragments joined with blank lines.
type Article struct {
	Fragments []Fragment `json:"fragments"`
}

// Render concatenates the enabled, non-empty fragments in order with
// blank-line separation.
func (a *Article) Render() string {
	var parts []string
	for _, f := range a.Fragments {
		if !f.Enabled {
			continue
		}
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// Hyperlink is a (url, anchor text) pair extracted from article HTML.
type Hyperlink struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchor_text"`
}
