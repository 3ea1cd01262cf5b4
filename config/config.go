package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Selectors SelectorsConfig
	Email     EmailConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Webhook   WebhookConfig
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

	// Proxy is the proxy URL passed to the browser.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects go-rod/stealth on every new document.
	Stealth bool // default: true

	// AcceptLanguage is sent on every request the browser makes.
	AcceptLanguage string // default: "es-ES,es;q=0.9,en;q=0.8"

	// BlockedResourceTypes lists resource types to block.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// ScreenshotDir receives diagnostic screenshots.
	ScreenshotDir string // default: "screenshots"

	// NavigationTimeout bounds a single Navigate call.
	NavigationTimeout time.Duration // default: 30s
}

// ScraperConfig controls pacing, retries and search behavior.
type ScraperConfig struct {
	// SearchBaseURL is prefixed to the escaped query.
	SearchBaseURL string // default: "https://www.google.com/maps/search/"

	// QueryConnector joins category and location, e.g. "restaurantes en Madrid".
	QueryConnector string // default: "en"

	FeedTimeout time.Duration // default: 10s

	ScrollPauseMin time.Duration // default: 1.5s
	ScrollPauseMax time.Duration // default: 3s

	// StallThreshold is the number of unchanged polls before the forced
	// end-of-list gesture.
	StallThreshold int // default: 5

	ForceEndPause time.Duration // default: 3s

	// VerifyAttempts bounds the click-and-verify loop per item.
	VerifyAttempts int // default: 3

	PanelPauseMin time.Duration // default: 2s
	PanelPauseMax time.Duration // default: 3s

	URLWaitTimeout time.Duration // default: 2s

	SearchPauseMin time.Duration // default: 3s
	SearchPauseMax time.Duration // default: 5s

	ItemPauseMin time.Duration // default: 500ms
	ItemPauseMax time.Duration // default: 1.5s

	MinPhoneDigits int // default: 7

	// SearchTimeout bounds a synchronous single-job API search.
	SearchTimeout time.Duration // default: 10m
}

// SelectorsConfig lists the CSS selectors used against the map application.
// Ordered lists are tried first to last.
type SelectorsConfig struct {
	Feed     string
	FeedItem string
	Title    []string
	Address  []string
	Phone    []string
	Website  []string
	Mailto   []string
	Rating   []string
	Reviews  []string
	Category []string
}

// All returns every configured selector, for validation.
func (s SelectorsConfig) All() []string {
	out := []string{s.Feed, s.FeedItem}
	for _, list := range [][]string{s.Title, s.Address, s.Phone, s.Website, s.Mailto, s.Rating, s.Reviews, s.Category} {
		out = append(out, list...)
	}
	return out
}

// EmailConfig controls website email discovery.
type EmailConfig struct {
	Enabled bool // default: true

	// Timeout is the per-fetch deadline.
	Timeout time.Duration // default: 10s

	// MaxBodyBytes caps the body read per page.
	MaxBodyBytes int64 // default: 10 MB

	// MemoryTTL is how long a per-site result is remembered.
	MemoryTTL time.Duration // default: 1h
}

// CacheConfig controls the per-query result cache.
type CacheConfig struct {
	Enabled bool // default: true

	// TTL is the maximum age of a usable entry.
	TTL time.Duration // default: 24h

	// MaxEntries bounds the in-memory backend.
	MaxEntries int // default: 1000

	// Backend is "memory" or "sqlite".
	Backend string // default: "sqlite"
}

// StorageConfig controls the sqlite database.
type StorageConfig struct {
	Path string // default: "mapleads.db"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig controls batch completion notifications.
type WebhookConfig struct {
	// Secret signs webhook payloads with HMAC-SHA256 when set.
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("MAPLEADS_HOST", "0.0.0.0"),
			Port: envIntOr("MAPLEADS_PORT", 8080),
			Mode: envOr("MAPLEADS_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("MAPLEADS_HEADLESS", true),
			Proxy:          os.Getenv("MAPLEADS_PROXY"),
			NoSandbox:      envBoolOr("MAPLEADS_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("MAPLEADS_BROWSER_BIN"),
			Stealth:        envBoolOr("MAPLEADS_STEALTH", true),
			AcceptLanguage: envOr("MAPLEADS_ACCEPT_LANGUAGE", "es-ES,es;q=0.9,en;q=0.8"),
			BlockedResourceTypes: envSliceOr("MAPLEADS_BLOCKED_RESOURCES", ",", []string{
				"Font", "Media",
			}),
			ScreenshotDir:     envOr("MAPLEADS_SCREENSHOT_DIR", "screenshots"),
			NavigationTimeout: envDurationOr("MAPLEADS_NAV_TIMEOUT", 30*time.Second),
		},
		Scraper: ScraperConfig{
			SearchBaseURL:  envOr("MAPLEADS_SEARCH_BASE_URL", "https://www.google.com/maps/search/"),
			QueryConnector: envOr("MAPLEADS_QUERY_CONNECTOR", "en"),
			FeedTimeout:    envDurationOr("MAPLEADS_FEED_TIMEOUT", 10*time.Second),
			ScrollPauseMin: envDurationOr("MAPLEADS_SCROLL_PAUSE_MIN", 1500*time.Millisecond),
			ScrollPauseMax: envDurationOr("MAPLEADS_SCROLL_PAUSE_MAX", 3*time.Second),
			StallThreshold: envIntOr("MAPLEADS_STALL_THRESHOLD", 5),
			ForceEndPause:  envDurationOr("MAPLEADS_FORCE_END_PAUSE", 3*time.Second),
			VerifyAttempts: envIntOr("MAPLEADS_VERIFY_ATTEMPTS", 3),
			PanelPauseMin:  envDurationOr("MAPLEADS_PANEL_PAUSE_MIN", 2*time.Second),
			PanelPauseMax:  envDurationOr("MAPLEADS_PANEL_PAUSE_MAX", 3*time.Second),
			URLWaitTimeout: envDurationOr("MAPLEADS_URL_WAIT_TIMEOUT", 2*time.Second),
			SearchPauseMin: envDurationOr("MAPLEADS_SEARCH_PAUSE_MIN", 3*time.Second),
			SearchPauseMax: envDurationOr("MAPLEADS_SEARCH_PAUSE_MAX", 5*time.Second),
			ItemPauseMin:   envDurationOr("MAPLEADS_ITEM_PAUSE_MIN", 500*time.Millisecond),
			ItemPauseMax:   envDurationOr("MAPLEADS_ITEM_PAUSE_MAX", 1500*time.Millisecond),
			MinPhoneDigits: envIntOr("MAPLEADS_MIN_PHONE_DIGITS", 7),
			SearchTimeout:  envDurationOr("MAPLEADS_SEARCH_TIMEOUT", 10*time.Minute),
		},
		Selectors: SelectorsConfig{
			Feed:     envOr("MAPLEADS_SEL_FEED", "div[role='feed']"),
			FeedItem: envOr("MAPLEADS_SEL_FEED_ITEM", "div[role='feed'] > div > div[jsaction]"),
			Title: envSliceOr("MAPLEADS_SEL_TITLE", "|", []string{
				"h1.DUwDvf", "h1.fontHeadlineLarge", "h1", "[role='main'] [aria-label]",
			}),
			Address:  envSliceOr("MAPLEADS_SEL_ADDRESS", "|", []string{"button[data-item-id='address']"}),
			Phone:    envSliceOr("MAPLEADS_SEL_PHONE", "|", []string{"button[data-item-id*='phone']", "[data-tooltip*='phone']"}),
			Website:  envSliceOr("MAPLEADS_SEL_WEBSITE", "|", []string{"a[data-item-id='authority']"}),
			Mailto:   envSliceOr("MAPLEADS_SEL_MAILTO", "|", []string{"a[href^='mailto:']"}),
			Rating:   envSliceOr("MAPLEADS_SEL_RATING", "|", []string{"span.ceNzKf", "div.F7nice span[aria-hidden='true']"}),
			Reviews:  envSliceOr("MAPLEADS_SEL_REVIEWS", "|", []string{"button.HHrUdb span", "div.F7nice span[aria-label]"}),
			Category: envSliceOr("MAPLEADS_SEL_CATEGORY", "|", []string{"button.DkEaL"}),
		},
		Email: EmailConfig{
			Enabled:      envBoolOr("MAPLEADS_EMAIL_ENABLED", true),
			Timeout:      envDurationOr("MAPLEADS_EMAIL_TIMEOUT", 10*time.Second),
			MaxBodyBytes: int64(envIntOr("MAPLEADS_EMAIL_MAX_BODY", 10*1024*1024)),
			MemoryTTL:    envDurationOr("MAPLEADS_EMAIL_MEMORY_TTL", time.Hour),
		},
		Cache: CacheConfig{
			Enabled:    envBoolOr("MAPLEADS_CACHE_ENABLED", true),
			TTL:        envDurationOr("MAPLEADS_CACHE_TTL", 24*time.Hour),
			MaxEntries: envIntOr("MAPLEADS_CACHE_MAX_ENTRIES", 1000),
			Backend:    envOr("MAPLEADS_CACHE_BACKEND", "sqlite"),
		},
		Storage: StorageConfig{
			Path: envOr("MAPLEADS_DB_PATH", "mapleads.db"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("MAPLEADS_AUTH_ENABLED", true),
			APIKeys: envSliceOr("MAPLEADS_API_KEYS", ",", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("MAPLEADS_RATE_RPS", 2.0),
			Burst:             envIntOr("MAPLEADS_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("MAPLEADS_LOG_LEVEL", "info"),
			Format: envOr("MAPLEADS_LOG_FORMAT", "json"),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("MAPLEADS_WEBHOOK_SECRET"),
		},
	}
}

// Validate checks the configuration once at startup. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}

	s := c.Scraper
	pairs := []struct {
		name     string
		min, max time.Duration
	}{
		{"scroll pause", s.ScrollPauseMin, s.ScrollPauseMax},
		{"panel pause", s.PanelPauseMin, s.PanelPauseMax},
		{"search pause", s.SearchPauseMin, s.SearchPauseMax},
		{"item pause", s.ItemPauseMin, s.ItemPauseMax},
	}
	for _, p := range pairs {
		if p.min < 0 || p.max < p.min {
			errs = append(errs, fmt.Errorf("%s: min %s must be >= 0 and <= max %s", p.name, p.min, p.max))
		}
	}
	if s.StallThreshold < 1 {
		errs = append(errs, fmt.Errorf("stall threshold must be >= 1, got %d", s.StallThreshold))
	}
	if s.VerifyAttempts < 1 {
		errs = append(errs, fmt.Errorf("verify attempts must be >= 1, got %d", s.VerifyAttempts))
	}
	if s.MinPhoneDigits < 1 {
		errs = append(errs, fmt.Errorf("min phone digits must be >= 1, got %d", s.MinPhoneDigits))
	}
	if s.FeedTimeout <= 0 || s.URLWaitTimeout <= 0 {
		errs = append(errs, errors.New("feed and url wait timeouts must be positive"))
	}
	if !strings.HasPrefix(s.SearchBaseURL, "http://") && !strings.HasPrefix(s.SearchBaseURL, "https://") {
		errs = append(errs, fmt.Errorf("search base url %q is not http(s)", s.SearchBaseURL))
	}

	for _, sel := range c.Selectors.All() {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			errs = append(errs, fmt.Errorf("selector %q: %w", sel, err))
		}
	}
	if len(c.Selectors.Title) == 0 {
		errs = append(errs, errors.New("at least one title selector is required"))
	}

	if c.Email.Timeout <= 0 || c.Email.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("email timeout and max body must be positive"))
	}

	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("cache max entries must be >= 1, got %d", c.Cache.MaxEntries))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage path is required"))
	}

	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("auth enabled but no API keys configured"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
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

// envSliceOr splits on sep. Selector lists use "|" since CSS groups
// already contain commas.
func envSliceOr(key, sep string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, sep)
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
