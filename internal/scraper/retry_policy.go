package scraper

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ExponentialRetryPolicy implements RetryPolicy with jittered backoff.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExponentialRetryPolicy builds a policy allowing maxRetries extra attempts.
func NewExponentialRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) *ExponentialRetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &ExponentialRetryPolicy{
		maxAttempts: maxRetries + 1,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// ShouldRetry decides whether the error is retryable. Client errors (4xx)
// and context cancellation are final.
func (p *ExponentialRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return fe.StatusCode == http.StatusTooManyRequests || fe.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

// Backoff returns the wait duration before the next attempt.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *ExponentialRetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// RetryingFetcher retries failed fetches according to a RetryPolicy.
type RetryingFetcher struct {
	next   Fetcher
	policy RetryPolicy
	logger *zap.Logger
}

// NewRetryingFetcher decorates next. A nil policy disables retries.
func NewRetryingFetcher(next Fetcher, policy RetryPolicy, logger *zap.Logger) *RetryingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingFetcher{next: next, policy: policy, logger: logger}
}

// Fetch calls the wrapped fetcher until it succeeds or the policy gives up.
func (f *RetryingFetcher) Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error) {
	for attempt := 1; ; attempt++ {
		resp, err := f.next.Fetch(ctx, request)
		if err == nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
			err = &FetchError{URL: request.URL, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		}
		if err == nil {
			return resp, nil
		}
		if f.policy == nil || !f.policy.ShouldRetry(err, attempt) {
			return FetchResponse{}, err
		}
		wait := f.policy.Backoff(attempt)
		f.logger.Info("retrying fetch",
			zap.String("url", request.URL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return FetchResponse{}, fmt.Errorf("retry wait canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
