// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/listing-scraper/internal/config"
	collyfetcher "github.com/JakeFAU/listing-scraper/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/listing-scraper/internal/fetcher/headless"
	"github.com/JakeFAU/listing-scraper/internal/id/uuid"
	"github.com/JakeFAU/listing-scraper/internal/scraper"
	"github.com/JakeFAU/listing-scraper/internal/telemetry"
)

// App holds the shared scraping pipeline: transport, resolver and listing
// crawler. It is built once at startup and handed to the API or CLI.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	ids      *uuid.Generator
	resolver *scraper.Resolver
	listings *scraper.ListingCrawler
	closers  []func()
}

// New wires config into a ready pipeline:
// transport → retry → page fetcher → extractor → resolver → listing crawler.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, ids: uuid.New()}

	if cfg.Telemetry.TracingEnabled {
		tp, err := telemetry.InitTracerProvider(context.Background(), cfg.Telemetry.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("tracer provider shutdown failed", zap.Error(err))
			}
		})
	}

	transport, err := a.buildTransport()
	if err != nil {
		a.Close()
		return nil, err
	}

	initial, maxDelay := cfg.Backoff()
	retrying := scraper.NewRetryingFetcher(
		transport,
		scraper.NewExponentialRetryPolicy(cfg.HTTP.MaxRetries, initial, maxDelay),
		logger.Named("retry"),
	)
	pages := scraper.NewPageFetcher(retrying, cfg.HTTP.HeaderSet, logger.Named("fetch"))
	a.resolver = scraper.NewResolver(pages, scraper.NewExtractor(cfg.Selectors), logger.Named("resolver"))
	a.listings = scraper.NewListingCrawler(
		scraper.ListingConfig{Selectors: cfg.Selectors, MaxPages: cfg.Crawler.MaxPages},
		pages,
		a.resolver,
		a.ids,
		logger.Named("listing"),
	)

	logger.Info("application services initialized",
		zap.String("fetcher_mode", cfg.Fetcher.Mode),
		zap.Int("max_retries", cfg.HTTP.MaxRetries),
		zap.Int("max_pages", cfg.Crawler.MaxPages),
	)
	return a, nil
}

func (a *App) buildTransport() (scraper.Fetcher, error) {
	switch a.cfg.Fetcher.Mode {
	case config.FetcherModeHeadless:
		f, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       a.cfg.Headless.MaxParallel,
			UserAgent:         a.cfg.HTTP.UserAgent,
			NavigationTimeout: a.cfg.NavTimeout(),
			WaitSelector:      a.cfg.Headless.WaitSelector,
			SettleDelay:       a.cfg.SettleDelay(),
		})
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		return f, nil
	case config.FetcherModeHTTP, "":
		return collyfetcher.New(collyfetcher.Config{
			UserAgent:     a.cfg.HTTP.UserAgent,
			RespectRobots: a.cfg.HTTP.RespectRobots,
			Timeout:       a.cfg.FetchTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown fetcher mode: %s", a.cfg.Fetcher.Mode)
	}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// IDs returns the UUIDv7 generator used for crawl and request IDs.
func (a *App) IDs() scraper.IDGenerator {
	return a.ids
}

// Resolver returns the single-product resolver.
func (a *App) Resolver() *scraper.Resolver {
	return a.resolver
}

// Listings returns the listing crawler.
func (a *App) Listings() *scraper.ListingCrawler {
	return a.listings
}

// Close releases the transport (the headless browser, when one was started).
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
