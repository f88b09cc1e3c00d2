package htmldoc

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/marketprose/marketprose/pkg/models"
)

// Anchors extracts every hyperlink from article text, in document order.
func Anchors(s string) []models.Hyperlink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		// Fall back to the tokenizer on malformed input.
		return anchorsFromNodes(Tokenize(s))
	}

	var links []models.Hyperlink
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		links = append(links, models.Hyperlink{
			URL:        href,
			AnchorText: strings.TrimSpace(sel.Text()),
		})
	})
	return links
}

// CountAnchors returns the number of anchor tags in article text.
func CountAnchors(s string) int {
	return len(Anchors(s))
}

func anchorsFromNodes(nodes []Node) []models.Hyperlink {
	var links []models.Hyperlink
	for _, n := range nodes {
		if n.Type == NodeAnchor {
			links = append(links, models.Hyperlink{URL: n.URL, AnchorText: strings.TrimSpace(n.Text)})
		}
	}
	return links
}

// RestoreAnchors guarantees the candidate text carries every hyperlink the
// original carried. Each missing link is reinserted by exact anchor-text
// match inside a prose node; links whose anchor text no longer appears are
// returned as lost, and the caller surfaces a warning instead of failing.
// Applying RestoreAnchors with candidate == original is the identity.
func RestoreAnchors(original, candidate string) (out string, lost []models.Hyperlink, warn bool) {
	want := Anchors(original)
	if len(want) == 0 {
		return candidate, nil, false
	}

	have := make(map[string]int)
	for _, l := range Anchors(candidate) {
		have[anchorKey(l)]++
	}

	nodes := Tokenize(candidate)
	changed := false

	for _, link := range want {
		key := anchorKey(link)
		if have[key] > 0 {
			have[key]--
			continue
		}
		if link.AnchorText == "" {
			lost = append(lost, link)
			continue
		}
		restored, ok := wrapFirstMatch(nodes, link)
		if !ok {
			lost = append(lost, link)
			continue
		}
		nodes = restored
		changed = true
	}

	if changed {
		out = Render(nodes)
	} else {
		out = candidate
	}
	return out, lost, len(lost) > 0
}

// anchorKey identifies a link for presence checks. URL wins when present;
// text-only links (rare, from hand-edited copy) fall back to anchor text.
func anchorKey(l models.Hyperlink) string {
	if l.URL != "" {
		return "u:" + l.URL
	}
	return "t:" + strings.ToLower(l.AnchorText)
}

// wrapFirstMatch finds the first prose node containing the link's anchor
// text and splits it into text/anchor/text.
func wrapFirstMatch(nodes []Node, link models.Hyperlink) ([]Node, bool) {
	for i, n := range nodes {
		if n.Type != NodeText {
			continue
		}
		idx := strings.Index(n.Text, link.AnchorText)
		if idx < 0 {
			continue
		}

		before := n.Text[:idx]
		after := n.Text[idx+len(link.AnchorText):]

		var repl []Node
		if before != "" {
			repl = append(repl, Node{Type: NodeText, Text: before})
		}
		repl = append(repl, Node{Type: NodeAnchor, Text: link.AnchorText, URL: link.URL})
		if after != "" {
			repl = append(repl, Node{Type: NodeText, Text: after})
		}

		result := make([]Node, 0, len(nodes)+2)
		result = append(result, nodes[:i]...)
		result = append(result, repl...)
		result = append(result, nodes[i+1:]...)
		return result, true
	}
	return nil, false
}
