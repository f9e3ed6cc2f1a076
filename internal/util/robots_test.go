package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRobotsServer(t *testing.T, body string, status int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	robots := "User-agent: firecheck\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n"
	server := newRobotsServer(t, robots, http.StatusOK, nil)
	defer server.Close()

	checker := NewRobotsChecker("firecheck/0.1 (+https://example.com)", nil, 5*time.Second, 0)

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/public/page")
	if err != nil {
		t.Fatalf("CanFetch: %v", err)
	}
	if !allowed {
		t.Error("Expected /public/page to be allowed for firecheck")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected 2s crawl delay, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(context.Background(), server.URL+"/private/doc")
	if allowed {
		t.Error("Expected /private/doc to be disallowed")
	}
}

func TestRobotsChecker_MissingRobotsAllowsAll(t *testing.T) {
	server := newRobotsServer(t, "", http.StatusNotFound, nil)
	defer server.Close()

	checker := NewRobotsChecker("firecheck", nil, 5*time.Second, 0)
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("Expected allowed without error, got %v, %v", allowed, err)
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	checker := NewRobotsChecker("firecheck", nil, 200*time.Millisecond, 0)
	allowed, _, err := checker.CanFetch(context.Background(), "http://127.0.0.1:1/page")
	if err != nil || !allowed {
		t.Errorf("Expected allowed without error, got %v, %v", allowed, err)
	}
}

func TestRobotsChecker_CachesUntilTTL(t *testing.T) {
	var hits atomic.Int32
	server := newRobotsServer(t, "User-agent: *\nAllow: /\n", http.StatusOK, &hits)
	defer server.Close()

	checker := NewRobotsChecker("firecheck", nil, 5*time.Second, time.Minute)
	now := time.Now()
	checker.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, _, _ = checker.CanFetch(context.Background(), server.URL+"/a")
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 robots fetch, got %d", hits.Load())
	}

	now = now.Add(2 * time.Minute)
	_, _, _ = checker.CanFetch(context.Background(), server.URL+"/a")
	if hits.Load() != 2 {
		t.Errorf("Expected refetch after TTL, got %d fetches", hits.Load())
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"firecheck/0.1 (+https://x)": "firecheck",
		"Googlebot":                  "Googlebot",
		"":                           "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
