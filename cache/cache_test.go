package cache

import (
	"testing"

	"github.com/use-agent/sectify/models"
)

func TestCache_HitWithinMaxAge(t *testing.T) {
	c := New(10)
	key := Key("https://example.com")

	c.Set(key, &models.ScrapeResult{URL: "https://example.com"})

	got, hit := c.Get(key, 60_000)
	if !hit {
		t.Fatal("Get() miss, want hit for a fresh entry")
	}
	if got.URL != "https://example.com" {
		t.Errorf("cached URL = %q, want %q", got.URL, "https://example.com")
	}
}

func TestCache_ZeroMaxAgeDisablesLookup(t *testing.T) {
	c := New(10)
	key := Key("https://example.com")
	c.Set(key, &models.ScrapeResult{URL: "https://example.com"})

	if _, hit := c.Get(key, 0); hit {
		t.Error("Get() hit with maxAge 0, want the lookup disabled")
	}
}

func TestCache_MissForUnknownKey(t *testing.T) {
	c := New(10)
	if _, hit := c.Get(Key("https://never-stored.example"), 60_000); hit {
		t.Error("Get() hit for a key that was never stored")
	}
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	c := New(2)
	c.Set(Key("https://a.example"), &models.ScrapeResult{URL: "a"})
	c.Set(Key("https://b.example"), &models.ScrapeResult{URL: "b"})
	c.Set(Key("https://c.example"), &models.ScrapeResult{URL: "c"})

	hits := 0
	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		if _, hit := c.Get(Key(u), 60_000); hit {
			hits++
		}
	}
	if hits != 2 {
		t.Errorf("entries retained = %d, want 2 (capacity)", hits)
	}
}

func TestKey_Deterministic(t *testing.T) {
	if Key("https://example.com") != Key("https://example.com") {
		t.Error("Key() is not deterministic")
	}
	if Key("https://example.com/a") == Key("https://example.com/b") {
		t.Error("Key() collides for different URLs")
	}
}
