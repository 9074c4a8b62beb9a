package app_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-scraper/internal/app"
	"github.com/JakeFAU/listing-scraper/internal/config"
	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.HTTP.TimeoutSeconds = 5
	return cfg
}

func newShop(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/s", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `<div data-asin="B"><h2><a href="/dp/B1">b1</a></h2></div>`)
			return
		}
		fmt.Fprint(w, `<div data-asin="A"><h2><a href="/dp/A1">a1</a></h2></div>
<div data-asin="X"><h2><a href="/dp/missing">gone</a></h2></div>
<a class="s-pagination-next" href="/s?page=2">Next</a>`)
	})
	mux.HandleFunc("/dp/A1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<span id="productTitle"> Speaker A </span><span class="a-offscreen">$10.00</span>`)
	})
	mux.HandleFunc("/dp/B1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<span id="productTitle">Speaker B</span>`)
	})
	mux.HandleFunc("/dp/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_HTTPPipeline(t *testing.T) {
	t.Parallel()

	shop := newShop(t)
	a, err := app.New(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Logger())
	require.Equal(t, config.FetcherModeHTTP, a.Config().Fetcher.Mode)
	id, err := a.IDs().NewID()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := a.Resolver().Resolve(context.Background(), shop.URL+"/dp/A1")
	require.NoError(t, err)
	require.Equal(t, "Speaker A", rec.Title.String())
	require.Equal(t, "$10.00", rec.Price.String())

	records, err := a.Listings().Crawl(context.Background(), shop.URL+"/s")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Speaker A", records[0].Title.String())
	require.Equal(t, "Speaker B", records[1].Title.String())
	require.Equal(t, scraper.NoPriceFound, records[1].Price.String())
}

func TestNew_HeadlessModeDoesNotStartBrowser(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Fetcher.Mode = config.FetcherModeHeadless
	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	a.Close()
}

func TestNew_RejectsUnknownMode(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Fetcher.Mode = "carrier-pigeon"
	_, err := app.New(cfg, zap.NewNop())
	require.Error(t, err)
}

func TestNew_TracingEnabledRegistersShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.TracingEnabled = true
	cfg.Telemetry.ServiceName = "listing-scraper-test"

	a, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotPanics(t, a.Close)
	require.NotPanics(t, a.Close)
}
