package headless

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

func TestNewChromedp(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1})
	require.Error(t, err)

	fetcher, err := NewChromedp(Config{MaxParallel: 2})
	require.NoError(t, err)
	defer fetcher.Close()
	require.Equal(t, 2, cap(fetcher.slots))
	require.Equal(t, defaultNavTimeout, fetcher.cfg.NavigationTimeout)
	require.Equal(t, defaultWaitSelector, fetcher.cfg.WaitSelector)
	require.Equal(t, defaultSettleDelay, fetcher.cfg.SettleDelay)

	unlimited, err := NewChromedp(Config{})
	require.NoError(t, err)
	defer unlimited.Close()
	require.Nil(t, unlimited.slots)
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{
		NavigationTimeout: time.Second,
		WaitSelector:      "#productTitle",
		SettleDelay:       -1,
	}.withDefaults()
	require.Equal(t, time.Second, cfg.NavigationTimeout)
	require.Equal(t, "#productTitle", cfg.WaitSelector)
	require.Zero(t, cfg.SettleDelay)
}

func TestTasksSkipSettleWhenDisabled(t *testing.T) {
	t.Parallel()

	var html, location string
	req := scraper.FetchRequest{URL: "https://example.com/dp/X"}

	settled := &Fetcher{cfg: Config{SettleDelay: time.Millisecond}.withDefaults()}
	require.Len(t, settled.tasks(req, &html, &location), 6)

	eager := &Fetcher{cfg: Config{SettleDelay: -1}.withDefaults()}
	require.Len(t, eager.tasks(req, &html, &location), 5)
}

func TestUserAgentPrefersRequestHeader(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{cfg: Config{UserAgent: "fallback"}}
	require.Equal(t, "fallback", fetcher.userAgent(http.Header{}))
	require.Equal(t, scraper.DefaultUserAgent, fetcher.userAgent(scraper.DefaultHeaderSet().Header()))
}

func TestBrowserHeadersDropsManagedHeaders(t *testing.T) {
	t.Parallel()

	extra := browserHeaders(scraper.DefaultHeaderSet().Header())
	require.Empty(t, extra.Get("User-Agent"))
	require.Empty(t, extra.Get("Accept-Encoding"))
	require.Equal(t, scraper.DefaultReferer, extra.Get("Referer"))
	require.Equal(t, scraper.DefaultAcceptLanguage, extra.Get("Accept-Language"))
}

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	src := http.Header{"X-Test": {"a", "b"}, "X-One": {"1"}, "X-Empty": {}}
	netHeaders := toNetworkHeaders(src)
	require.Equal(t, []string{"a", "b"}, netHeaders["X-Test"])
	require.Equal(t, "1", netHeaders["X-One"])
	require.NotContains(t, netHeaders, "X-Empty")
}

func TestDocumentRecorder(t *testing.T) {
	t.Parallel()

	doc := &documentRecorder{}
	doc.observe(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 301, URL: "https://example.com/old"},
	})
	doc.observe(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  503,
			URL:     "https://example.com/rendered",
			Headers: network.Headers{"X-Request-ID": "abc", "Set-Cookie": []any{"a=1", "b=2"}},
		},
	})
	doc.observe(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 200, URL: "https://example.com/img.png"},
	})
	doc.observe("not an event")

	got := doc.result("https://req", "https://final")
	require.Equal(t, 503, got.status)
	require.Equal(t, "https://example.com/rendered", got.url)
	require.Equal(t, "abc", got.headers.Get("X-Request-ID"))
	require.Equal(t, []string{"a=1", "b=2"}, got.headers.Values("Set-Cookie"))
}

func TestDocumentRecorderFallbacks(t *testing.T) {
	t.Parallel()

	doc := &documentRecorder{}
	got := doc.result("https://req", "https://final")
	require.Equal(t, http.StatusOK, got.status)
	require.Equal(t, "https://final", got.url)
	require.NotNil(t, got.headers)

	got = doc.result("https://req", "")
	require.Equal(t, "https://req", got.url)
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{slots: make(chan struct{}, 1)}
	require.NoError(t, fetcher.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, fetcher.acquire(ctx), context.Canceled)

	fetcher.release()
	require.NoError(t, fetcher.acquire(context.Background()))
}

func TestFetchWrapsSlotTimeout(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{slots: make(chan struct{}, 1)}
	require.NoError(t, fetcher.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := fetcher.Fetch(ctx, scraper.FetchRequest{URL: "https://example.com/s"})
	require.Error(t, err)
	require.True(t, scraper.IsFetchFailure(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
