// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the fetch and product counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_fetches_total",
			Help: "Total number of page fetches, labeled by site and outcome.",
		},
		[]string{"site", "outcome"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_fetch_duration_seconds",
			Help:    "Histogram of page fetch latencies, labeled by site.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site"},
	)

	productsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_products_total",
			Help: "Total number of product URLs handled by the listing crawler, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	listingPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_listing_pages_total",
			Help: "Total number of listing pages walked, labeled by site.",
		},
		[]string{"site"},
	)

	crawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_crawls_total",
			Help: "Total number of listing crawls, labeled by final status.",
		},
		[]string{"status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
		},
		[]string{"method", "route"},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one page fetch.
func ObserveFetch(rawURL, outcome string, duration time.Duration) {
	site := SanitizeSite(rawURL)
	fetchesTotal.WithLabelValues(site, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveProduct records how the listing crawler handled one product link.
func ObserveProduct(outcome string) {
	productsTotal.WithLabelValues(outcome).Inc()
}

// ObserveListingPage records one listing page walked.
func ObserveListingPage(rawURL string) {
	listingPagesTotal.WithLabelValues(SanitizeSite(rawURL)).Inc()
}

// ObserveCrawl records the final status of a listing crawl.
func ObserveCrawl(status string) {
	crawlsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
