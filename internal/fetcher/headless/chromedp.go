// Package headless contains fetchers that render pages in a headless browser.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

const (
	defaultNavTimeout   = 45 * time.Second
	defaultWaitSelector = "body"
	defaultSettleDelay  = 500 * time.Millisecond
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	// MaxParallel caps concurrent tabs; 0 means unlimited.
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	// WaitSelector must be present before the DOM is captured.
	WaitSelector string
	// SettleDelay gives late scripts time to fill in prices and ratings.
	SettleDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = defaultNavTimeout
	}
	if c.WaitSelector == "" {
		c.WaitSelector = defaultWaitSelector
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	} else if c.SettleDelay == 0 {
		c.SettleDelay = defaultSettleDelay
	}
	return c
}

// Fetcher implements scraper.Fetcher on top of a shared Chrome allocator.
// Every Fetch opens its own tab, so concurrent API requests never share
// browser state.
type Fetcher struct {
	cfg      Config
	slots    chan struct{}
	browser  context.Context
	shutdown context.CancelFunc
}

// NewChromedp creates a headless fetcher backed by chromedp. Chrome is not
// started until the first Fetch.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	cfg = cfg.withDefaults()

	f := &Fetcher{cfg: cfg}
	if cfg.MaxParallel > 0 {
		f.slots = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	f.browser, f.shutdown = chromedp.NewExecAllocator(context.Background(), opts...)
	return f, nil
}

// Close shuts down the browser.
func (f *Fetcher) Close() {
	f.shutdown()
}

// Fetch navigates to the URL and returns the rendered DOM. The document's
// HTTP status is reported as-is; browser failures become *scraper.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, request scraper.FetchRequest) (scraper.FetchResponse, error) {
	fail := func(err error) (scraper.FetchResponse, error) {
		return scraper.FetchResponse{}, &scraper.FetchError{URL: request.URL, Err: err}
	}

	if err := f.acquire(ctx); err != nil {
		return fail(err)
	}
	defer f.release()

	tab, closeTab := chromedp.NewContext(f.browser)
	defer closeTab()
	tab, cancel := context.WithTimeout(tab, f.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	doc := &documentRecorder{}
	chromedp.ListenTarget(tab, doc.observe)

	var html, location string
	start := time.Now()
	if err := chromedp.Run(tab, f.tasks(request, &html, &location)); err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		return fail(fmt.Errorf("chromedp run: %w", err))
	}

	result := doc.result(request.URL, location)
	return scraper.FetchResponse{
		URL:        result.url,
		StatusCode: result.status,
		Headers:    result.headers,
		Body:       []byte(html),
		Duration:   time.Since(start),
	}, nil
}

func (f *Fetcher) tasks(request scraper.FetchRequest, html, location *string) chromedp.Tasks {
	tasks := chromedp.Tasks{
		f.prepareTab(request.Headers),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady(f.cfg.WaitSelector, chromedp.ByQuery),
	}
	if f.cfg.SettleDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(f.cfg.SettleDelay))
	}
	return append(tasks,
		chromedp.Location(location),
		chromedp.OuterHTML("html", html, chromedp.ByQuery),
	)
}

// prepareTab applies the scraper's header set to the tab before navigation.
func (f *Fetcher) prepareTab(headers http.Header) chromedp.Action {
	userAgent := f.userAgent(headers)
	extra := browserHeaders(headers)
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if userAgent != "" {
			if err := emulation.SetUserAgentOverride(userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(extra) == 0 {
			return nil
		}
		if err := network.SetExtraHTTPHeaders(toNetworkHeaders(extra)).Do(ctx); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
		return nil
	})
}

// userAgent prefers the request's header set over the configured fallback.
func (f *Fetcher) userAgent(headers http.Header) string {
	if ua := headers.Get("User-Agent"); ua != "" {
		return ua
	}
	return f.cfg.UserAgent
}

// browserHeaders drops headers Chrome manages itself.
func browserHeaders(headers http.Header) http.Header {
	out := http.Header{}
	for key, values := range headers {
		switch http.CanonicalHeaderKey(key) {
		case "User-Agent", "Accept-Encoding":
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	return out
}

func toNetworkHeaders(h http.Header) network.Headers {
	out := network.Headers{}
	for key, values := range h {
		switch len(values) {
		case 0:
		case 1:
			out[key] = values[0]
		default:
			out[key] = append([]string(nil), values...)
		}
	}
	return out
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.slots == nil {
		return nil
	}
	select {
	case f.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for browser tab: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.slots != nil {
		<-f.slots
	}
}
