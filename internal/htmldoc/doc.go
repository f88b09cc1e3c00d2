// Package htmldoc provides the lightweight document model and repair
// passes applied to article text before and after LLM edits. Article
// bodies are plain prose with inline anchor tags and heading tags; the
// tokenizer splits them into an ordered node list so the preservation
// checks operate on structure instead of raw regular expressions.
package htmldoc

import (
	"strings"
)

// NodeType discriminates the node kinds in a tokenized document.
type NodeType int

const (
	// NodeText is a run of prose between structural markers.
	NodeText NodeType = iota
	// NodeAnchor is an inline <a href> element.
	NodeAnchor
	// NodeHeading is a block heading (<h1>..<h6>).
	NodeHeading
)

// Node is one element of a tokenized document.
type Node struct {
	Type  NodeType
	Text  string // prose, anchor text, or heading text
	URL   string // anchors only
	Level int    // headings only, 1..6
}

// Tokenize splits article text into an ordered node list. Anything that is
// not a recognized anchor or heading tag stays in text nodes verbatim, so
// Render(Tokenize(s)) == s holds for well-formed input.
func Tokenize(s string) []Node {
	var nodes []Node
	rest := s

	flush := func(text string) {
		if text != "" {
			nodes = append(nodes, Node{Type: NodeText, Text: text})
		}
	}

	for {
		i := strings.Index(rest, "<")
		if i < 0 {
			flush(rest)
			return nodes
		}

		tag := rest[i:]
		switch {
		case hasTagPrefix(tag, "a"):
			node, consumed, ok := parseAnchor(tag)
			if !ok {
				flush(rest[:i+1])
				rest = rest[i+1:]
				continue
			}
			flush(rest[:i])
			nodes = append(nodes, node)
			rest = tag[consumed:]
		case headingLevel(tag) > 0:
			node, consumed, ok := parseHeading(tag)
			if !ok {
				flush(rest[:i+1])
				rest = rest[i+1:]
				continue
			}
			flush(rest[:i])
			nodes = append(nodes, node)
			rest = tag[consumed:]
		default:
			flush(rest[:i+1])
			rest = rest[i+1:]
		}
	}
}

// Render reassembles a node list into article text.
func Render(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case NodeAnchor:
			b.WriteString(`<a href="`)
			b.WriteString(n.URL)
			b.WriteString(`">`)
			b.WriteString(n.Text)
			b.WriteString("</a>")
		case NodeHeading:
			lvl := headingTag(n.Level)
			b.WriteString("<" + lvl + ">")
			b.WriteString(n.Text)
			b.WriteString("</" + lvl + ">")
		default:
			b.WriteString(n.Text)
		}
	}
	return b.String()
}

// hasTagPrefix reports whether s starts an opening tag with the given name,
// e.g. "<a " or "<a>".
func hasTagPrefix(s, name string) bool {
	prefix := "<" + name
	if !strings.HasPrefix(strings.ToLower(s), prefix) {
		return false
	}
	if len(s) <= len(prefix) {
		return false
	}
	c := s[len(prefix)]
	return c == ' ' || c == '>' || c == '\t' || c == '\n'
}

// headingLevel returns 1..6 when s starts an <hN> tag, else 0.
func headingLevel(s string) int {
	lower := strings.ToLower(s)
	if len(lower) < 4 || lower[0] != '<' || lower[1] != 'h' {
		return 0
	}
	lvl := int(lower[2] - '0')
	if lvl < 1 || lvl > 6 || lower[3] != '>' {
		return 0
	}
	return lvl
}

func headingTag(level int) string {
	if level < 1 || level > 6 {
		level = 2
	}
	return "h" + string(rune('0'+level))
}

// parseAnchor parses one <a href="...">text</a> element at the start of s.
// Returns the node, bytes consumed, and whether the parse succeeded.
func parseAnchor(s string) (Node, int, bool) {
	openEnd := strings.Index(s, ">")
	if openEnd < 0 {
		return Node{}, 0, false
	}
	openTag := s[:openEnd+1]

	url := extractAttr(openTag, "href")

	lower := strings.ToLower(s)
	closeIdx := strings.Index(lower[openEnd:], "</a>")
	if closeIdx < 0 {
		return Node{}, 0, false
	}
	closeIdx += openEnd

	return Node{
		Type: NodeAnchor,
		Text: s[openEnd+1 : closeIdx],
		URL:  url,
	}, closeIdx + len("</a>"), true
}

// parseHeading parses one <hN>text</hN> element at the start of s.
func parseHeading(s string) (Node, int, bool) {
	lvl := headingLevel(s)
	if lvl == 0 {
		return Node{}, 0, false
	}
	open := 4 // len("<hN>")
	closeTag := "</h" + string(rune('0'+lvl)) + ">"
	closeIdx := strings.Index(strings.ToLower(s[open:]), closeTag)
	if closeIdx < 0 {
		return Node{}, 0, false
	}
	closeIdx += open

	return Node{
		Type:  NodeHeading,
		Text:  s[open:closeIdx],
		Level: lvl,
	}, closeIdx + len(closeTag), true
}

// extractAttr pulls a quoted attribute value out of an opening tag.
func extractAttr(tag, name string) string {
	lower := strings.ToLower(tag)
	i := strings.Index(lower, name+"=")
	if i < 0 {
		return ""
	}
	rest := tag[i+len(name)+1:]
	if rest == "" {
		return ""
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		// Unquoted value, read to space or tag end.
		end := strings.IndexAny(rest, " \t\n>")
		if end < 0 {
			return rest
		}
		return rest[:end]
	}
	end := strings.IndexByte(rest[1:], quote)
	if end < 0 {
		return ""
	}
	return rest[1 : 1+end]
}
