package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

type fakePage struct {
	status int
	body   string
	err    error
}

// fakeFetcher serves canned pages by exact URL and counts calls per URL.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]fakePage
	calls    map[string]int
	order    []string
	lastHead http.Header
}

func newFakeFetcher(pages map[string]fakePage) *fakeFetcher {
	return &fakeFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(_ context.Context, req FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.URL]++
	f.order = append(f.order, req.URL)
	f.lastHead = req.Headers

	page, ok := f.pages[req.URL]
	if !ok {
		return FetchResponse{}, &FetchError{URL: req.URL, Err: errors.New("no such host")}
	}
	if page.err != nil {
		return FetchResponse{}, page.err
	}
	status := page.status
	if status == 0 {
		status = http.StatusOK
	}
	return FetchResponse{URL: req.URL, StatusCode: status, Body: []byte(page.body)}, nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func listingHTML(next string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"s-result-list\">")
	for i, href := range links {
		fmt.Fprintf(&b, `<div data-asin="ASIN%d"><h2><a href=%q>item</a></h2></div>`, i, href)
	}
	b.WriteString("</div>")
	if next != "" {
		fmt.Fprintf(&b, `<a class="s-pagination-next" href=%q>Next</a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func productHTML(title string) string {
	return fmt.Sprintf(`<html><body>
<span id="productTitle">  %s  </span>
<span class="a-price"><span class="a-offscreen">$99.00</span></span>
</body></html>`, title)
}
