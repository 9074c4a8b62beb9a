package scraper

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestExponentialRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(2, 10*time.Millisecond, 40*time.Millisecond)

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{name: "nil error", err: nil, attempt: 1, want: false},
		{name: "server error", err: &FetchError{StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, attempt: 1, want: true},
		{name: "too many requests", err: &FetchError{StatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")}, attempt: 2, want: true},
		{name: "not found", err: &FetchError{StatusCode: http.StatusNotFound, Err: errors.New("missing")}, attempt: 1, want: false},
		{name: "attempts exhausted", err: &FetchError{StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, attempt: 3, want: false},
		{name: "canceled", err: &FetchError{Err: context.Canceled}, attempt: 1, want: false},
		{name: "deadline", err: context.DeadlineExceeded, attempt: 1, want: false},
		{name: "network timeout", err: &FetchError{Err: timeoutErr{}}, attempt: 1, want: true},
		{name: "plain transport error", err: errors.New("connection refused"), attempt: 1, want: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, p.ShouldRetry(tc.err, tc.attempt))
		})
	}
}

func TestExponentialRetryPolicyZeroRetries(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(0, 0, 0)
	require.False(t, p.ShouldRetry(errors.New("boom"), 1))
}

func TestExponentialRetryPolicyBackoffBounded(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(5, 10*time.Millisecond, 40*time.Millisecond)
	for attempt := 1; attempt <= 5; attempt++ {
		d := p.Backoff(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, 40*time.Millisecond)
	}
}

type scriptedFetcher struct {
	responses []FetchResponse
	errs      []error
	calls     int
}

func (s *scriptedFetcher) Fetch(context.Context, FetchRequest) (FetchResponse, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], s.errs[i]
}

func TestRetryingFetcherRetriesServerErrors(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{
		responses: []FetchResponse{{StatusCode: http.StatusBadGateway}, {StatusCode: http.StatusOK, Body: []byte("ok")}},
		errs:      []error{nil, nil},
	}
	f := NewRetryingFetcher(next, NewExponentialRetryPolicy(2, time.Millisecond, 2*time.Millisecond), nil)

	resp, err := f.Fetch(context.Background(), FetchRequest{URL: "https://shop.test"})
	require.NoError(t, err)
	require.Equal(t, "ok", string(resp.Body))
	require.Equal(t, 2, next.calls)
}

func TestRetryingFetcherDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{
		responses: []FetchResponse{{StatusCode: http.StatusForbidden}},
		errs:      []error{nil},
	}
	f := NewRetryingFetcher(next, NewExponentialRetryPolicy(3, time.Millisecond, 2*time.Millisecond), nil)

	_, err := f.Fetch(context.Background(), FetchRequest{URL: "https://shop.test"})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusForbidden, fe.StatusCode)
	require.Equal(t, 1, next.calls)
}

func TestRetryingFetcherGivesUp(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{
		responses: []FetchResponse{{}},
		errs:      []error{&FetchError{URL: "https://shop.test", Err: errors.New("connection reset")}},
	}
	f := NewRetryingFetcher(next, NewExponentialRetryPolicy(2, time.Millisecond, 2*time.Millisecond), nil)

	_, err := f.Fetch(context.Background(), FetchRequest{URL: "https://shop.test"})
	require.True(t, IsFetchFailure(err))
	require.Equal(t, 3, next.calls)
}

func TestRetryingFetcherNilPolicy(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{
		responses: []FetchResponse{{}},
		errs:      []error{errors.New("boom")},
	}
	f := NewRetryingFetcher(next, nil, nil)

	_, err := f.Fetch(context.Background(), FetchRequest{URL: "https://shop.test"})
	require.Error(t, err)
	require.Equal(t, 1, next.calls)
}

func TestRetryingFetcherStopsOnCancel(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{
		responses: []FetchResponse{{StatusCode: http.StatusServiceUnavailable}},
		errs:      []error{nil},
	}
	f := NewRetryingFetcher(next, NewExponentialRetryPolicy(5, time.Hour, time.Hour), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, FetchRequest{URL: "https://shop.test"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, next.calls)
}
