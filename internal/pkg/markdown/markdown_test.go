package markdown_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/planpresso/internal/pkg/markdown"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank", "  \n ", ""},
		{"emphasis", "**bold** and *it*", "<p><strong>bold</strong> and <em>it</em></p>"},
		{"disallowed tag keeps text", "<u>under</u>", "<p>under</p>"},
		{"link", "[map](https://example.com)", `<p><a href="https://example.com">map</a></p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markdown.Render(tt.in); got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRender_HardWraps(t *testing.T) {
	got := markdown.Render("line one\nline two")
	if !strings.Contains(got, "<br") {
		t.Errorf("expected a line break, got %q", got)
	}
}

func TestRender_Lists(t *testing.T) {
	got := markdown.Render("- bread\n- cheese")
	for _, want := range []string{"<ul>", "<li>bread</li>", "<li>cheese</li>"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestRender_StripsUnsafeContent(t *testing.T) {
	for _, in := range []string{
		"<script>alert(1)</script>",
		"[click](javascript:alert(1))",
		`<img src="x" onerror="alert(1)">`,
	} {
		got := markdown.Render(in)
		for _, bad := range []string{"script", "javascript", "onerror", "<img"} {
			if strings.Contains(got, bad) {
				t.Errorf("Render(%q) = %q, must not contain %q", in, got, bad)
			}
		}
	}
}
