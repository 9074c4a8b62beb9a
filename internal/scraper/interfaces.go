package scraper

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// RetryPolicy decides whether and when a failed fetch is attempted again.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// IDGenerator produces crawl IDs.
type IDGenerator interface {
	NewID() (string, error)
}
