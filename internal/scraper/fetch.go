package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-scraper/internal/metrics"
)

// Browser-like defaults sent with every request.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 13_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "da, en-gb, en"
	DefaultAcceptEncoding = "gzip"
	DefaultReferer        = "https://www.google.com/"
)

// HeaderSet is the fixed set of request headers used to look like a browser.
type HeaderSet struct {
	UserAgent      string `mapstructure:"user_agent"`
	Accept         string `mapstructure:"accept"`
	AcceptLanguage string `mapstructure:"accept_language"`
	AcceptEncoding string `mapstructure:"accept_encoding"`
	Referer        string `mapstructure:"referer"`
}

// DefaultHeaderSet returns the browser header set.
func DefaultHeaderSet() HeaderSet {
	return HeaderSet{
		UserAgent:      DefaultUserAgent,
		Accept:         DefaultAccept,
		AcceptLanguage: DefaultAcceptLanguage,
		AcceptEncoding: DefaultAcceptEncoding,
		Referer:        DefaultReferer,
	}
}

// Header converts the set into an http.Header, skipping empty values.
func (h HeaderSet) Header() http.Header {
	out := http.Header{}
	set := func(key, value string) {
		if value != "" {
			out.Set(key, value)
		}
	}
	set("User-Agent", h.UserAgent)
	set("Accept", h.Accept)
	set("Accept-Language", h.AcceptLanguage)
	set("Accept-Encoding", h.AcceptEncoding)
	set("Referer", h.Referer)
	return out
}

// PageFetcher fetches a URL with the fixed header set and parses the result.
type PageFetcher struct {
	fetcher Fetcher
	headers http.Header
	logger  *zap.Logger
}

// NewPageFetcher wraps fetcher. A nil logger disables diagnostics.
func NewPageFetcher(fetcher Fetcher, headers HeaderSet, logger *zap.Logger) *PageFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageFetcher{
		fetcher: fetcher,
		headers: headers.Header(),
		logger:  logger,
	}
}

// Fetch issues one GET for url. Any transport error or non-2xx status is
// reported as a *FetchError; the caller decides whether that is fatal.
func (p *PageFetcher) Fetch(ctx context.Context, url string) (page *Page, err error) {
	ctx, span := startSpan(ctx, "scraper.fetch_page", attribute.String("url.full", url))
	defer func() { endSpan(span, err) }()

	start := time.Now()
	resp, err := p.fetcher.Fetch(ctx, FetchRequest{URL: url, Headers: p.headers.Clone()})
	if err != nil {
		fetchErr := asFetchError(url, err)
		p.logger.Warn("fetch failed",
			zap.String("url", url),
			zap.Int("status_code", fetchErr.StatusCode),
			zap.Error(err),
		)
		metrics.ObserveFetch(url, metrics.OutcomeFailure, time.Since(start))
		return nil, fetchErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Warn("fetch returned non-2xx status",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
		)
		metrics.ObserveFetch(url, metrics.OutcomeFailure, time.Since(start))
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		metrics.ObserveFetch(url, metrics.OutcomeFailure, time.Since(start))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse html: %w", err)}
	}

	p.logger.Info("fetched page",
		zap.String("url", url),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
		zap.Duration("duration", time.Since(start)),
	)
	metrics.ObserveFetch(url, metrics.OutcomeSuccess, time.Since(start))

	pageURL := resp.URL
	if pageURL == "" {
		pageURL = url
	}
	return &Page{URL: pageURL, StatusCode: resp.StatusCode, Doc: doc}, nil
}

func asFetchError(url string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{URL: url, Err: err}
}
