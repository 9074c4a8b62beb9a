package headless

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/chromedp/cdproto/network"
)

// documentRecorder keeps the last main-document response seen by a tab.
// Redirect hops arrive first, so the final page overwrites them.
type documentRecorder struct {
	mu      sync.Mutex
	status  int
	url     string
	headers http.Header
}

type documentResult struct {
	status  int
	url     string
	headers http.Header
}

func (d *documentRecorder) observe(ev any) {
	event, ok := ev.(*network.EventResponseReceived)
	if !ok || event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	headers := flattenHeaders(event.Response.Headers)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = int(event.Response.Status)
	d.url = event.Response.URL
	d.headers = headers
}

// result fills gaps left by pages that never reported a document response:
// status defaults to 200 and the URL to the tab location, then the request.
func (d *documentRecorder) result(requestURL, location string) documentResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := documentResult{status: d.status, url: d.url, headers: d.headers.Clone()}
	if out.status == 0 {
		out.status = http.StatusOK
	}
	if out.url == "" {
		out.url = location
	}
	if out.url == "" {
		out.url = requestURL
	}
	if out.headers == nil {
		out.headers = http.Header{}
	}
	return out
}

func flattenHeaders(src network.Headers) http.Header {
	out := http.Header{}
	for key, value := range src {
		switch v := value.(type) {
		case string:
			out.Add(key, v)
		case []string:
			for _, entry := range v {
				out.Add(key, entry)
			}
		case []any:
			for _, entry := range v {
				out.Add(key, fmt.Sprint(entry))
			}
		default:
			out.Add(key, fmt.Sprint(v))
		}
	}
	return out
}
