package web

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"

	"github.com/ppiankov/firecheck/internal/model"
)

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantTitle   string
		wantText    string
	}{
		{
			name:        "html",
			contentType: "text/html; charset=utf-8",
			body:        "<html><head><title> T </title><style>p{}</style></head><body><p>one</p><div>two  three</div></body></html>",
			wantTitle:   "T",
			wantText:    "one\ntwo three",
		},
		{
			name:        "plain",
			contentType: "text/plain",
			body:        "line one\r\n\r\n   line   two  ",
			wantText:    "line one\nline two",
		},
		{
			name:        "json",
			contentType: "application/json",
			body:        `{"a":1}`,
			wantText:    "{\n\"a\": 1\n}",
		},
		{
			name:        "sniffed html",
			contentType: "",
			body:        "<!DOCTYPE html><html><body><p>sniffed</p></body></html>",
			wantText:    "sniffed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, text, err := extractContent(tt.contentType, []byte(tt.body))
			if err != nil {
				t.Fatalf("extractContent: %v", err)
			}
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
		})
	}
}

func TestExtractContent_Unsupported(t *testing.T) {
	_, _, err := extractContent("application/octet-stream", []byte{0, 1, 2})
	if !errors.Is(err, errUnsupportedContentType) {
		t.Errorf("Expected unsupported content type, got %v", err)
	}
}

func TestExtractContent_InvalidPDF(t *testing.T) {
	_, _, err := extractContent("application/pdf", []byte("not a pdf"))
	if err == nil {
		t.Error("Expected error for invalid PDF")
	}
}

func TestValidatePublicURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/page", false},
		{"http://example.com:8080/x", false},
		{"ftp://example.com/file", true},
		{"https://localhost/admin", true},
		{"https://printer.local/", true},
		{"https://metadata.internal/", true},
		{"http://127.0.0.1/", true},
		{"http://10.0.0.5/", true},
		{"http://192.168.1.1/", true},
		{"http://169.254.169.254/latest/meta-data", true},
		{"http://[::1]/", true},
		{"https://example.com:22/", true},
		{"/relative", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := validatePublicURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePublicURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	for _, addr := range []string{"127.0.0.1", "10.1.2.3", "172.16.0.1", "fd00::1", "fe80::1", "0.0.0.0"} {
		if !isPrivateIP(netip.MustParseAddr(addr)) {
			t.Errorf("Expected %s to be private", addr)
		}
	}
	for _, addr := range []string{"8.8.8.8", "2606:4700:4700::1111"} {
		if isPrivateIP(netip.MustParseAddr(addr)) {
			t.Errorf("Expected %s to be public", addr)
		}
	}
}

func TestSecureDialContext_BlocksLoopback(t *testing.T) {
	dial := secureDialContext(nil)
	_, err := dial(context.Background(), "tcp", "127.0.0.1:80")
	if !errors.Is(err, errBlockedURLHost) {
		t.Errorf("Expected blocked host, got %v", err)
	}
}

func TestSecureDialContext_ExemptsProxy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	dial := secureDialContext(nil, ln.Addr().String())
	conn, err := dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Expected exempt proxy address to dial, got %v", err)
	}
	_ = conn.Close()

	if _, err := dial(context.Background(), "tcp", "127.0.0.1:1"); !errors.Is(err, errBlockedURLHost) {
		t.Errorf("Expected other loopback addresses to stay blocked, got %v", err)
	}
}

func TestAuthorityClassifier_Classify(t *testing.T) {
	classifier := NewAuthorityClassifier(model.AuthorityConfig{
		PrimaryDomains:   []string{"legislation.gov.uk", "doi.org"},
		SecondaryDomains: []string{"wikipedia.org", "britannica.com"},
		DomainMap: map[string]string{
			"nytimes.com": "secondary",
			"myblog.com":  "tertiary",
		},
		PathPatterns: []model.PathPattern{
			{Pattern: "/statute/", Tier: "primary"},
			{Pattern: "([", Tier: "primary"}, // Invalid; skipped
		},
	})

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{"https://legislation.gov.uk/ukpga/1998/42", model.TierPrimary, "Primary domain exact match"},
		{"https://www.legislation.gov.uk/statute", model.TierPrimary, "Primary domain with www"},
		{"https://doi.org/10.1234/example", model.TierPrimary, "DOI primary source"},
		{"https://en.wikipedia.org/wiki/Laksa", model.TierSecondary, "Wikipedia subdomain"},
		{"https://www.britannica.com/topic/democracy", model.TierSecondary, "Britannica secondary source"},
		{"https://nytimes.com/article", model.TierSecondary, "Explicit domain map"},
		{"https://myblog.com/post", model.TierTertiary, "Explicit tertiary mapping"},
		{"https://example.com/statute/42", model.TierPrimary, "Path pattern"},
		{"https://whitehouse.gov/statements", model.TierPrimary, ".gov TLD"},
		{"https://mit.edu/research", model.TierPrimary, ".edu TLD"},
		{"https://oxford.ac.uk/research", model.TierPrimary, ".ac.uk TLD"},
		{"https://example.com/blog/post", model.TierTertiary, "Default tertiary"},
		{"not a url", model.TierUnknown, "Unparseable"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.url); got != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, got)
			}
		})
	}
}

func TestWithAuthority_AnnotatesResults(t *testing.T) {
	base := &stubSearcher{results: []model.SearchResult{
		{Link: "https://en.wikipedia.org/wiki/X", Rank: 1},
		{Link: "https://someblog.net/x", Rank: 2},
	}}
	s := WithAuthority(base, NewAuthorityClassifier(model.DefaultConfig().Authority))

	results, err := s.Search(context.Background(), "x", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Authority != model.TierSecondary || results[1].Authority != model.TierTertiary {
		t.Errorf("Unexpected tiers: %v, %v", results[0].Authority, results[1].Authority)
	}
	if base.results[0].Authority != model.TierUnknown {
		t.Error("Expected the provider's slice to be left untouched")
	}
	if !strings.EqualFold(s.Name(), "stub") {
		t.Errorf("Expected wrapped name, got %s", s.Name())
	}
}

func TestExtractContent_Wikipedia(t *testing.T) {
	body := `<html><head><title>Eiffel Tower - Wikipedia</title></head><body>
<div id="mw-navigation"><a>Main page</a></div>
<div id="mw-content-text">
<div class="hatnote">For other uses, see Eiffel Tower (disambiguation).</div>
<p>The tower is 330 metres tall.<sup class="reference"><a href="#cite_note-1">[1]</a></sup></p>
<h2>History<span class="mw-editsection">[edit]</span></h2>
<p>It was completed in 1889.</p>
<div class="reflist"><ol><li>Official site</li></ol></div>
</div>
</body></html>`

	title, text, err := extractContent("text/html", []byte(body))
	if err != nil {
		t.Fatalf("extractContent: %v", err)
	}
	if title != "Eiffel Tower - Wikipedia" {
		t.Errorf("Unexpected title %q", title)
	}
	want := "The tower is 330 metres tall.\nHistory\nIt was completed in 1889."
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestExtractContent_ArticleRoot(t *testing.T) {
	body := `<html><body><div class="menu">Home About</div><main><p>Body text.</p><aside>Related</aside></main><div>Cookie banner</div></body></html>`

	_, text, err := extractContent("text/html", []byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if text != "Body text." {
		t.Errorf("Expected only main content, got %q", text)
	}
}

func TestContentAdapters(t *testing.T) {
	names := make([]string, 0, len(contentAdapters))
	for _, a := range contentAdapters {
		names = append(names, a.Name())
	}
	if strings.Join(names, ",") != "wikipedia,article" {
		t.Errorf("Unexpected adapter order %v", names)
	}
}
