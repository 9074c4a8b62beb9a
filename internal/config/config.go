// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

// DefaultListingURL is crawled when no listing URL is given.
const DefaultListingURL = "https://www.amazon.com/s?k=bose&rh=n%3A12097479011&ref=nb_sb_noss"

// Fetcher modes.
const (
	FetcherModeHTTP     = "http"
	FetcherModeHeadless = "headless"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Auth      AuthConfig        `mapstructure:"auth"`
	HTTP      HTTPConfig        `mapstructure:"http"`
	Fetcher   FetcherConfig     `mapstructure:"fetcher"`
	Headless  HeadlessConfig    `mapstructure:"headless"`
	Crawler   CrawlerConfig     `mapstructure:"crawler"`
	Selectors scraper.Selectors `mapstructure:"selectors"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	Telemetry TelemetryConfig   `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig configures outbound fetches: timeout, retry and the header set.
type HTTPConfig struct {
	TimeoutSeconds   int  `mapstructure:"timeout_seconds"`
	MaxRetries       int  `mapstructure:"max_retries"`
	BackoffInitialMs int  `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int  `mapstructure:"backoff_max_ms"`
	RespectRobots    bool `mapstructure:"respect_robots"`

	scraper.HeaderSet `mapstructure:",squash"`
}

// FetcherConfig selects the transport.
type FetcherConfig struct {
	Mode string `mapstructure:"mode"`
}

// HeadlessConfig configures the chromedp fetcher.
type HeadlessConfig struct {
	MaxParallel   int    `mapstructure:"max_parallel"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	WaitSelector  string `mapstructure:"wait_selector"`
	SettleMs      int    `mapstructure:"settle_ms"`
}

// CrawlerConfig governs the listing crawl.
type CrawlerConfig struct {
	MaxPages          int    `mapstructure:"max_pages"`
	DefaultListingURL string `mapstructure:"default_listing_url"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig toggles OpenTelemetry tracing.
type TelemetryConfig struct {
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	ServiceName    string `mapstructure:"service_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "SCRAPER_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Fetcher.Mode = strings.ToLower(strings.TrimSpace(cfg.Fetcher.Mode))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 600)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 0)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 2000)
	v.SetDefault("http.respect_robots", false)

	headers := scraper.DefaultHeaderSet()
	v.SetDefault("http.user_agent", headers.UserAgent)
	v.SetDefault("http.accept", headers.Accept)
	v.SetDefault("http.accept_language", headers.AcceptLanguage)
	v.SetDefault("http.accept_encoding", headers.AcceptEncoding)
	v.SetDefault("http.referer", headers.Referer)

	v.SetDefault("fetcher.mode", FetcherModeHTTP)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.wait_selector", "body")
	v.SetDefault("headless.settle_ms", 500)
	v.SetDefault("crawler.max_pages", 0)
	v.SetDefault("crawler.default_listing_url", DefaultListingURL)

	sel := scraper.DefaultSelectors()
	v.SetDefault("selectors.title", sel.Title)
	v.SetDefault("selectors.price", sel.Price)
	v.SetDefault("selectors.rating", sel.Rating)
	v.SetDefault("selectors.reviews", sel.Reviews)
	v.SetDefault("selectors.image", sel.Image)
	v.SetDefault("selectors.description", sel.Description)
	v.SetDefault("selectors.bought", sel.Bought)
	v.SetDefault("selectors.product_links", sel.ProductLinks)
	v.SetDefault("selectors.next_page", sel.NextPage)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.service_name", "listing-scraper")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Crawler.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must be >= 0")
	}
	switch c.Fetcher.Mode {
	case FetcherModeHTTP, FetcherModeHeadless:
	default:
		return fmt.Errorf("fetcher.mode must be %q or %q, got %q", FetcherModeHTTP, FetcherModeHeadless, c.Fetcher.Mode)
	}
	if c.Headless.MaxParallel < 0 {
		return fmt.Errorf("headless.max_parallel must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Telemetry.TracingEnabled && strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		return fmt.Errorf("telemetry.service_name must be set when tracing is enabled")
	}
	if err := c.Selectors.Validate(); err != nil {
		return fmt.Errorf("invalid selectors: %w", err)
	}
	return nil
}

// FetchTimeout is the per-fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single API request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// NavTimeout is the headless navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// SettleDelay is how long the headless fetcher waits after the DOM is ready.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Headless.SettleMs) * time.Millisecond
}

// Backoff returns the initial and maximum retry delays.
func (c Config) Backoff() (time.Duration, time.Duration) {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond,
		time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}
