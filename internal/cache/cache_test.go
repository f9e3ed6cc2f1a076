package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/firecheck/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("search", "serper", "q")
	b := Key("search", "serper", "q")
	c := Key("search", "brave", "q")
	d := Key("scrape", "serper", "q")

	if a != b {
		t.Error("Expected identical keys for identical input")
	}
	if a == c || a == d {
		t.Error("Expected different keys for different provider or namespace")
	}
	if !strings.HasPrefix(a, "firecheck_v1_search_") {
		t.Errorf("Unexpected key prefix: %s", a)
	}
	if Key("x", "ab", "c") == Key("x", "a", "bc") {
		t.Error("Expected part boundaries to affect the key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Expected miss")
	}
	_ = c.Set("k", []byte("v"), 0)
	if got, ok := c.Get("k"); !ok || string(got) != "v" {
		t.Errorf("Expected hit with v, got %q %v", got, ok)
	}
	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("scrape", "https://example.com")

	if _, ok := c.Get(key); ok {
		t.Error("Expected miss")
	}
	if err := c.Set(key, []byte("page"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, ok := c.Get(key); !ok || string(got) != "page" {
		t.Errorf("Expected hit, got %q %v", got, ok)
	}

	// A fresh instance over the same dir sees the entry
	if got, ok := NewDiskCache(dir, time.Hour).Get(key); !ok || string(got) != "page" {
		t.Error("Expected entry to persist on disk")
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Deleting a missing key should not fail: %v", err)
	}
}

func TestDiskCache_Expired(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	_ = c.Set("k1", []byte("v"), -time.Second)
	if _, ok := c.Get("k1"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	_ = disk.Set("k1", []byte("v"), 0)

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	if got, ok := c.Get("k1"); !ok || string(got) != "v" {
		t.Fatalf("Expected disk hit, got %q %v", got, ok)
	}
	if got, ok := c.memory.Get("k1"); !ok || string(got) != "v" {
		t.Error("Expected value promoted to memory")
	}
}

func TestFromConfig(t *testing.T) {
	if FromConfig(model.CacheConfig{Enabled: false}) != nil {
		t.Error("Expected nil cache when disabled")
	}
	c := FromConfig(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour})
	if _, ok := c.(*LayeredCache); !ok {
		t.Errorf("Expected LayeredCache, got %T", c)
	}
}
