package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Sentinel strings reported for fields that could not be extracted.
const (
	NoTitleFound   = "No title found"
	NoPriceFound   = "No price found"
	NoRatingFound  = "No rating found"
	NoReviewsFound = "No reviews found"
)

// Field is a best-effort extracted value. Found distinguishes a missing
// element from one that was present but empty.
type Field struct {
	Value    string
	Found    bool
	Sentinel string
}

// Present wraps a value that was found on the page.
func Present(value string) Field {
	return Field{Value: value, Found: true}
}

// Absent marks a field as not found and reports sentinel in its place.
func Absent(sentinel string) Field {
	return Field{Sentinel: sentinel}
}

// Null marks a field as not found with no sentinel; it encodes as JSON null.
func Null() Field {
	return Field{}
}

// String returns the value, or the sentinel when the field was not found.
func (f Field) String() string {
	if f.Found {
		return f.Value
	}
	return f.Sentinel
}

// IsNull reports whether the field encodes as JSON null.
func (f Field) IsNull() bool {
	return !f.Found && f.Sentinel == ""
}

// MarshalJSON encodes found values and sentinels as strings and null fields as null.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.IsNull() {
		return []byte("null"), nil
	}
	b, err := json.Marshal(f.String())
	if err != nil {
		return nil, fmt.Errorf("marshal field: %w", err)
	}
	return b, nil
}

// ProductRecord is the structured result of scraping one product page.
type ProductRecord struct {
	Title       Field  `json:"title"`
	Price       Field  `json:"price"`
	Rating      Field  `json:"rating"`
	Reviews     Field  `json:"reviews"`
	Image       Field  `json:"image"`
	Description Field  `json:"description"`
	Bought      Field  `json:"bought"`
	URL         string `json:"url"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Page is a fetched and parsed HTML document.
type Page struct {
	URL        string
	StatusCode int
	Doc        *goquery.Document
}

// FetchError reports a network failure or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchFailure reports whether err carries a *FetchError.
func IsFetchFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
