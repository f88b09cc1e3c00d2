package htmldoc

import (
	"strings"
	"testing"
)

func TestTokenizeRoundTrip(t *testing.T) {
	tests := []string{
		"Plain prose with no markup.",
		`Read <a href="https://example.com/a">this story</a> for more.`,
		`<h2>Section</h2>` + "\n\nBody text.",
		`Mixed <a href="https://example.com/a">one</a> and <a href="https://example.com/b">two</a>.`,
		"Stray < bracket stays put.",
	}
	for _, in := range tests {
		if got := Render(Tokenize(in)); got != in {
			t.Errorf("round trip changed text:\n in: %q\nout: %q", in, got)
		}
	}
}

func TestTokenizeNodeTypes(t *testing.T) {
	nodes := Tokenize(`<h2>Why It Matters</h2>` + "\n" + `See <a href="https://example.com">the filing</a>.`)

	var headings, anchors, texts int
	for _, n := range nodes {
		switch n.Type {
		case NodeHeading:
			headings++
			if n.Level != 2 || n.Text != "Why It Matters" {
				t.Errorf("heading node = %+v", n)
			}
		case NodeAnchor:
			anchors++
			if n.URL != "https://example.com" || n.Text != "the filing" {
				t.Errorf("anchor node = %+v", n)
			}
		case NodeText:
			texts++
		}
	}
	if headings != 1 || anchors != 1 || texts == 0 {
		t.Errorf("node counts: headings=%d anchors=%d texts=%d", headings, anchors, texts)
	}
}

func TestAnchorsExtraction(t *testing.T) {
	text := `Also read: <a href="https://example.com/x">First Story</a> and ` +
		`<a href='https://example.com/y'>Second Story</a>.`
	links := Anchors(text)
	if len(links) != 2 {
		t.Fatalf("got %d links, want 2", len(links))
	}
	if links[0].URL != "https://example.com/x" || links[0].AnchorText != "First Story" {
		t.Errorf("links[0] = %+v", links[0])
	}
	if links[1].URL != "https://example.com/y" || links[1].AnchorText != "Second Story" {
		t.Errorf("links[1] = %+v", links[1])
	}
}

func TestRestoreAnchorsIdempotent(t *testing.T) {
	original := `Lead sentence. Read <a href="https://example.com/a">story one</a> and ` +
		`<a href="https://example.com/b">story two</a> plus <a href="https://example.com/c">story three</a>.`

	out, lost, warn := RestoreAnchors(original, original)
	if warn || len(lost) != 0 {
		t.Fatalf("identity pass lost links: %+v", lost)
	}
	if out != original {
		t.Errorf("identity pass changed text:\n%q\n%q", out, original)
	}
	if got := CountAnchors(out); got != 3 {
		t.Errorf("CountAnchors = %d, want exactly 3", got)
	}
}

func TestRestoreAnchorsReinserts(t *testing.T) {
	original := `Shares rose after <a href="https://example.com/report">the earnings report</a> landed.`
	candidate := `Shares climbed sharply after the earnings report landed.`

	out, lost, warn := RestoreAnchors(original, candidate)
	if warn || len(lost) != 0 {
		t.Fatalf("expected clean restore, lost=%+v", lost)
	}
	if CountAnchors(out) != 1 {
		t.Fatalf("CountAnchors = %d, want 1\nout: %q", CountAnchors(out), out)
	}
	if !strings.Contains(out, `<a href="https://example.com/report">the earnings report</a>`) {
		t.Errorf("restored anchor missing: %q", out)
	}
}

func TestRestoreAnchorsSurfacesLost(t *testing.T) {
	original := `See <a href="https://example.com/gone">the old analysis</a> here.`
	candidate := `A completely rewritten paragraph with nothing in common.`

	out, lost, warn := RestoreAnchors(original, candidate)
	if !warn {
		t.Fatal("expected warning for unrestorable link")
	}
	if len(lost) != 1 || lost[0].URL != "https://example.com/gone" {
		t.Errorf("lost = %+v", lost)
	}
	if out != candidate {
		t.Errorf("unrestorable link must not mutate candidate: %q", out)
	}
}

func TestRestoreAnchorsDoesNotDoubleWrap(t *testing.T) {
	original := `Read <a href="https://example.com/a">the story</a> today.`
	candidate := `Read <a href="https://example.com/a">the story</a> today, analysts said.`

	out, _, warn := RestoreAnchors(original, candidate)
	if warn {
		t.Fatal("unexpected warning")
	}
	if got := CountAnchors(out); got != 1 {
		t.Errorf("CountAnchors = %d, want 1 (no double wrap)", got)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "Plain text.", "Plain text."},
		{"html fence", "```html\n<h2>Title</h2>\nBody\n```", "<h2>Title</h2>\nBody"},
		{"bare fence", "```\nBody\n```", "Body"},
		{"unclosed", "```\nBody only", "Body only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvertMarkdownHeadings(t *testing.T) {
	in := "## Why It Matters\nBody text.\n#### Small Heading\n#NotAHeading"
	got := ConvertMarkdownHeadings(in)

	if !strings.Contains(got, "<h2>Why It Matters</h2>") {
		t.Errorf("h2 not converted: %q", got)
	}
	if !strings.Contains(got, "<h4>Small Heading</h4>") {
		t.Errorf("level not preserved: %q", got)
	}
	if !strings.Contains(got, "#NotAHeading") {
		t.Errorf("hashtag wrongly converted: %q", got)
	}
}

func TestNormalizeSpacing(t *testing.T) {
	in := "Lead.\n\n\n\n<h2>Section</h2>\nBody."
	got := NormalizeSpacing(in)

	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank-line run not collapsed: %q", got)
	}
	if !strings.Contains(got, "Lead.\n\n<h2>Section</h2>") {
		t.Errorf("heading not separated by blank line: %q", got)
	}
}

func TestInsertAtSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one closes."
	insertion := `Also read: <a href="https://example.com/more">More Coverage</a>.`

	got := InsertAtSentenceBoundary(text, insertion)
	if CountAnchors(got) != 1 {
		t.Fatalf("inserted link missing: %q", got)
	}
	// The insertion lands at a sentence boundary, never mid-word.
	idx := strings.Index(got, "Also read:")
	if idx < 1 || got[idx-2] != '.' {
		t.Errorf("insertion not at a sentence boundary: %q", got)
	}
}

func TestInsertAtSentenceBoundaryNoBoundaries(t *testing.T) {
	got := InsertAtSentenceBoundary("fragment without terminator", "Added sentence.")
	if !strings.HasSuffix(got, "Added sentence.") {
		t.Errorf("insertion not appended: %q", got)
	}
}
