package htmldoc

import (
	"strings"
)

// StripCodeFences removes a markdown code-fence wrapper that chat models
// sometimes emit around the whole response. Inner fences are untouched.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	// Drop the opening fence line, including any language tag.
	nl := strings.IndexByte(trimmed, '\n')
	if nl < 0 {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	body := trimmed[nl+1:]

	if idx := strings.LastIndex(body, "```"); idx >= 0 && strings.TrimSpace(body[idx+3:]) == "" {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// ConvertMarkdownHeadings rewrites markdown heading lines into the inline
// heading tags the publishing system expects, preserving the level.
func ConvertMarkdownHeadings(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		level := 0
		for level < len(trimmed) && level < 6 && trimmed[level] == '#' {
			level++
		}
		if level == 0 || level >= len(trimmed) || trimmed[level] != ' ' {
			continue
		}
		text := strings.TrimSpace(trimmed[level:])
		tag := headingTag(level)
		lines[i] = "<" + tag + ">" + text + "</" + tag + ">"
	}
	return strings.Join(lines, "\n")
}

// NormalizeSpacing collapses runs of blank lines and guarantees one blank
// line before each block heading.
func NormalizeSpacing(s string) string {
	// Collapse 3+ newlines to a paragraph break.
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}

	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isHeadingLine(trimmed) && len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func isHeadingLine(s string) bool {
	return headingLevel(s) > 0
}

// Clean is the standard post-LLM cleanup: fence stripping, heading
// conversion, then spacing normalization, in that order.
func Clean(s string) string {
	return NormalizeSpacing(ConvertMarkdownHeadings(StripCodeFences(s)))
}

// SentenceBoundaries returns the byte offsets just after each sentence
// terminator in prose, skipping anchor and heading interiors. Used for
// programmatic link insertion when an LLM will not restore a link.
func SentenceBoundaries(s string) []int {
	nodes := Tokenize(s)
	var bounds []int
	offset := 0
	for _, n := range nodes {
		rendered := Render([]Node{n})
		if n.Type == NodeText {
			for i := 0; i < len(n.Text); i++ {
				c := n.Text[i]
				if c != '.' && c != '!' && c != '?' {
					continue
				}
				if i+1 < len(n.Text) && n.Text[i+1] != ' ' && n.Text[i+1] != '\n' {
					continue
				}
				bounds = append(bounds, offset+i+1)
			}
		}
		offset += len(rendered)
	}
	return bounds
}

// InsertAtSentenceBoundary splices insertion into text at the sentence
// boundary closest to the midpoint, keeping the addition away from the
// lead and the kicker. Text without boundaries gets the insertion
// appended as its own paragraph.
func InsertAtSentenceBoundary(text, insertion string) string {
	bounds := SentenceBoundaries(text)
	if len(bounds) == 0 {
		return strings.TrimRight(text, "\n") + "\n\n" + insertion
	}

	mid := len(text) / 2
	best := bounds[0]
	for _, b := range bounds {
		if abs(b-mid) < abs(best-mid) {
			best = b
		}
	}

	return text[:best] + " " + insertion + text[best:]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
