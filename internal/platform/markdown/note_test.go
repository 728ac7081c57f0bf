package markdown_test

import (
	"strings"
	"testing"

	"cadence/internal/platform/markdown"
)

func TestParseWithoutFrontmatter(t *testing.T) {
	t.Parallel()
	note, err := markdown.Parse("# Title\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(note.Meta) != 0 || note.Body != "# Title\n" {
		t.Fatalf("unexpected note: %+v", note)
	}
}

func TestParseRejectsUnclosedFrontmatter(t *testing.T) {
	t.Parallel()
	if _, err := markdown.Parse("---\nid: 1\n# body"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderRoundTrip(t *testing.T) {
	t.Parallel()
	in := markdown.Note{Meta: map[string]any{"id": "abc", "total_clicks": 3}, Body: "# Session\n"}
	rendered, err := in.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out, err := markdown.Parse(strings.ReplaceAll(rendered, "\n", "\r\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Meta["id"] != "abc" || out.Meta["total_clicks"] != 3 {
		t.Fatalf("meta lost: %+v", out.Meta)
	}
	if !strings.Contains(out.Body, "# Session") {
		t.Fatalf("body lost: %q", out.Body)
	}
}

func TestSetBlockReplacesInPlace(t *testing.T) {
	t.Parallel()
	note := markdown.Note{Body: "intro"}
	note.SetBlock("summary", "first\n")
	note.Body += "\nafter\n"
	note.SetBlock("summary", "second")

	got, ok := note.Block("summary")
	if !ok || got != "second" {
		t.Fatalf("expected replaced block, got %q ok=%v", got, ok)
	}
	if !strings.HasPrefix(note.Body, "intro\n\n") || !strings.HasSuffix(note.Body, "\nafter\n") {
		t.Fatalf("surrounding text changed: %q", note.Body)
	}
	if strings.Count(note.Body, "cadence:summary:start") != 1 {
		t.Fatalf("duplicate markers: %q", note.Body)
	}
	if _, ok := note.Block("notes"); ok {
		t.Fatalf("unexpected notes block")
	}
}
