package scraper

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Not parallel: swaps the global tracer provider.
func TestCrawlEmitsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	f := newFakeFetcher(map[string]fakePage{
		"https://shop.test/s":     {body: listingHTML("", "/dp/A1", "/dp/A2")},
		"https://shop.test/dp/A1": {body: productHTML("a1")},
		"https://shop.test/dp/A2": {status: http.StatusNotFound},
	})
	_, err := newTestCrawler(f, 0).Crawl(context.Background(), "https://shop.test/s")
	require.NoError(t, err)

	counts := map[string]int{}
	var failedResolves int
	for _, span := range recorder.Ended() {
		counts[span.Name()]++
		if span.Name() == "scraper.resolve_product" && span.Status().Code == codes.Error {
			failedResolves++
		}
	}
	require.Equal(t, 1, counts["scraper.crawl_listing"])
	require.Equal(t, 2, counts["scraper.resolve_product"])
	require.Equal(t, 3, counts["scraper.fetch_page"])
	require.Equal(t, 1, failedResolves)
}
