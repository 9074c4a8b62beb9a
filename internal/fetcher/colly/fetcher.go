// Package collyfetcher implements scraper.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"

	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Fetcher implements scraper.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	// Client spans only; trace headers would alter the fixed browser header set.
	transport := otelhttp.NewTransport(newHTTPTransport(),
		otelhttp.WithPropagators(propagation.NewCompositeTextMapPropagator()),
	)
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET using Colly. Error statuses are returned
// as responses; transport failures come back as *scraper.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, request scraper.FetchRequest) (scraper.FetchResponse, error) {
	var (
		result   scraper.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(request, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return scraper.FetchResponse{}, err
	}
	if result.StatusCode == 0 {
		return scraper.FetchResponse{}, &scraper.FetchError{URL: request.URL, Err: ErrNoResponse}
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	request scraper.FetchRequest,
	start time.Time,
	result *scraper.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, request, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request scraper.FetchRequest,
	start time.Time,
	result *scraper.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = scraper.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		*fetchErr = &scraper.FetchError{URL: request.URL, StatusCode: status, Err: err}
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return &scraper.FetchError{URL: url, Err: fmt.Errorf("colly fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return &scraper.FetchError{URL: url, Err: fmt.Errorf("colly visit failed: %w", err)}
		}
		return nil
	}
}

// copyHeaders replaces any collector defaults with the request's headers.
func (f *Fetcher) copyHeaders(request scraper.FetchRequest, r *colly.Request) {
	if request.Headers == nil || r.Headers == nil {
		return
	}
	for key, values := range request.Headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

// ErrNoResponse is returned when colly finished without a response or error.
var ErrNoResponse = errors.New("colly finished without a response")
