package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Interact  InteractConfig
	Section   SectionConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent render sessions).
	MaxPages int // default: 10

	// MaxPageUses retires a pooled page after this many render sessions.
	MaxPageUses int // default: 50

	// MaxPageAge retires a pooled page after this lifetime.
	MaxPageAge time.Duration // default: 50m

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects anti-automation-detection JS before navigation.
	Stealth bool // default: true
}

// ScraperConfig controls the fetch and render passes.
type ScraperConfig struct {
	// FetchTimeout is the ceiling for the static HTTP fetch.
	FetchTimeout time.Duration // default: 30s

	// PageLoadTimeout is the ceiling for browser navigation + load wait.
	PageLoadTimeout time.Duration // default: 30s

	// SettleDelay is the fixed wait after page load, catching delayed
	// script-driven rendering before interaction starts.
	SettleDelay time.Duration // default: 2s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 180s

	// BlockedResourceTypes lists browser resource types to block during
	// rendering. default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// InteractConfig bounds the interaction driver. Each counter ceiling is a
// hard budget: the driver never exceeds it regardless of what the page
// offers.
type InteractConfig struct {
	// MaxTabClicks bounds distinct tab controls clicked per session.
	MaxTabClicks int // default: 3

	// MaxLoadMoreClicks bounds "load more" style clicks per session.
	MaxLoadMoreClicks int // default: 3

	// MaxScrolls bounds bottom-scroll probes per session.
	MaxScrolls int // default: 3

	// MaxPaginationDepth bounds "next page" navigations per session.
	MaxPaginationDepth int // default: 3

	// SettleShort is the wait after lightweight clicks (tabs, dismiss).
	SettleShort time.Duration // default: 1s

	// SettleLong is the wait after content-loading interactions
	// (load more, scroll, pagination).
	SettleLong time.Duration // default: 2s

	// IdleTimeout is the best-effort network-idle ceiling after an
	// interaction. Timing out here is expected and ignored.
	IdleTimeout time.Duration // default: 3s
}

// SectionConfig controls segmentation and sanitization.
type SectionConfig struct {
	// MaxRawHTML caps each section's rawHtml field, in bytes.
	MaxRawHTML int // default: 5000

	// MinTextFragment is the minimum length of a text fragment kept in
	// the derived text view. Shorter fragments are treated as noise.
	MinTextFragment int // default: 10

	// MaxTextFragments caps how many text fragments are joined into the
	// text view of one section.
	MaxTextFragments int // default: 50

	// Markdown toggles the per-section markdown rendering.
	Markdown bool // default: true
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting of the inbound API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key / client IP.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// CacheConfig controls the scrape result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SECTIFY_HOST", "0.0.0.0"),
			Port: envIntOr("SECTIFY_PORT", 8080),
			Mode: envOr("SECTIFY_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:    envBoolOr("SECTIFY_HEADLESS", true),
			MaxPages:    envIntOr("SECTIFY_MAX_PAGES", 10),
			MaxPageUses: envIntOr("SECTIFY_MAX_PAGE_USES", 50),
			MaxPageAge:  envDurationOr("SECTIFY_MAX_PAGE_AGE", 50*time.Minute),
			NoSandbox:   envBoolOr("SECTIFY_NO_SANDBOX", false),
			BrowserBin:  os.Getenv("SECTIFY_BROWSER_BIN"),
			Stealth:     envBoolOr("SECTIFY_STEALTH", true),
		},
		Scraper: ScraperConfig{
			FetchTimeout:    envDurationOr("SECTIFY_FETCH_TIMEOUT", 30*time.Second),
			PageLoadTimeout: envDurationOr("SECTIFY_PAGE_LOAD_TIMEOUT", 30*time.Second),
			SettleDelay:     envDurationOr("SECTIFY_SETTLE_DELAY", 2*time.Second),
			MaxTimeout:      envDurationOr("SECTIFY_MAX_TIMEOUT", 180*time.Second),
			BlockedResourceTypes: envSliceOr("SECTIFY_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Interact: InteractConfig{
			MaxTabClicks:       envIntOr("SECTIFY_MAX_TAB_CLICKS", 3),
			MaxLoadMoreClicks:  envIntOr("SECTIFY_MAX_LOAD_MORE_CLICKS", 3),
			MaxScrolls:         envIntOr("SECTIFY_MAX_SCROLLS", 3),
			MaxPaginationDepth: envIntOr("SECTIFY_MAX_PAGINATION_DEPTH", 3),
			SettleShort:        envDurationOr("SECTIFY_SETTLE_SHORT", time.Second),
			SettleLong:         envDurationOr("SECTIFY_SETTLE_LONG", 2*time.Second),
			IdleTimeout:        envDurationOr("SECTIFY_IDLE_TIMEOUT", 3*time.Second),
		},
		Section: SectionConfig{
			MaxRawHTML:       envIntOr("SECTIFY_MAX_RAW_HTML", 5000),
			MinTextFragment:  envIntOr("SECTIFY_MIN_TEXT_FRAGMENT", 10),
			MaxTextFragments: envIntOr("SECTIFY_MAX_TEXT_FRAGMENTS", 50),
			Markdown:         envBoolOr("SECTIFY_MARKDOWN", true),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SECTIFY_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SECTIFY_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SECTIFY_RATE_RPS", 5.0),
			Burst:             envIntOr("SECTIFY_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SECTIFY_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("SECTIFY_LOG_LEVEL", "info"),
			Format: envOr("SECTIFY_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
