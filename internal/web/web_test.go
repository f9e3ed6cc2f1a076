package web

import (
	"strings"
	"testing"
)

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/page", "https://example.com/page"},
		{"  https://example.com/page  ", "https://example.com/page"},
		{`"https://example.com/page"`, "https://example.com/page"},
		{"'https://example.com/page'", "https://example.com/page"},
		{"<https://example.com/page>", "https://example.com/page"},
		{"<https://example.com/page>.", "https://example.com/page"},
		{"`https://example.com/page`", "https://example.com/page"},
		{"[Example](https://example.com/page)", "https://example.com/page"},
		{"(https://example.com/page)", "https://example.com/page"},
		{"https://example.com/page.", "https://example.com/page"},
		{"https://example.com/page),", "https://example.com/page"},
		{"https://en.wikipedia.org/wiki/Mercury_(planet)", "https://en.wikipedia.org/wiki/Mercury_(planet)"},
		{"https://en.wikipedia.org/wiki/Mercury_(planet).", "https://en.wikipedia.org/wiki/Mercury_(planet)"},
		{"example.com/page", "https://example.com/page"},
		{"//example.com/page", "https://example.com/page"},
		{"http://example.com", "http://example.com"},
		{"", ""},
		{`  ""  `, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanURL(tt.in); got != tt.want {
				t.Errorf("CleanURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Expected untouched text, got %q", got)
	}
	if got := Truncate("exactly10!", 10); got != "exactly10!" {
		t.Errorf("Expected text at the limit to be untouched, got %q", got)
	}

	got := Truncate("0123456789abc", 10)
	if got != "0123456789"+TruncationMarker {
		t.Errorf("Unexpected truncation: %q", got)
	}
	if !strings.HasSuffix(got, "[Content truncated...]") {
		t.Error("Expected truncation marker")
	}

	// Rune-aware
	got = Truncate("ééééé", 3)
	if got != "ééé"+TruncationMarker {
		t.Errorf("Expected rune truncation, got %q", got)
	}

	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("Expected limit 0 to disable truncation, got %q", got)
	}
}

func TestAPIError(t *testing.T) {
	err := APIError{Provider: "serper", StatusCode: 401, Body: "bad key"}
	if err.Error() != "serper returned 401: bad key" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestTrimToWordLimit(t *testing.T) {
	if got := trimToWordLimit("  one   two three ", 2); got != "one two" {
		t.Errorf("Unexpected result: %q", got)
	}
	if got := trimToWordLimit("one", 0); got != "" {
		t.Errorf("Expected empty for zero limit, got %q", got)
	}
}
