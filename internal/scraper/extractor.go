package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor pulls named product fields out of a parsed document. Every
// method tolerates a nil document and reports the field's absent value.
type Extractor struct {
	sel Selectors
}

// NewExtractor builds an Extractor; empty selectors fall back to the defaults.
func NewExtractor(sel Selectors) *Extractor {
	return &Extractor{sel: sel.WithDefaults()}
}

// Extract runs every field rule and assembles a record for url.
func (e *Extractor) Extract(doc *goquery.Document, url string) ProductRecord {
	return ProductRecord{
		Title:       e.Title(doc),
		Price:       e.Price(doc),
		Rating:      e.Rating(doc),
		Reviews:     e.Reviews(doc),
		Image:       e.Image(doc),
		Description: e.Description(doc),
		Bought:      e.Bought(doc),
		URL:         url,
	}
}

// Title returns the trimmed product title.
func (e *Extractor) Title(doc *goquery.Document) Field {
	return textField(doc, e.sel.Title, Absent(NoTitleFound))
}

// Price returns the offscreen price text.
func (e *Extractor) Price(doc *goquery.Document) Field {
	return textField(doc, e.sel.Price, Absent(NoPriceFound))
}

// Rating prefers the popover's title attribute ("4.5 out of 5 stars") and
// falls back to its text.
func (e *Extractor) Rating(doc *goquery.Document) Field {
	sel := first(doc, e.sel.Rating)
	if sel == nil {
		return Absent(NoRatingFound)
	}
	if title, ok := sel.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return Present(title)
	}
	return Present(strings.TrimSpace(sel.Text()))
}

// Reviews returns the customer review count text.
func (e *Extractor) Reviews(doc *goquery.Document) Field {
	return textField(doc, e.sel.Reviews, Absent(NoReviewsFound))
}

// Image returns the raw src attribute of the main product image.
func (e *Extractor) Image(doc *goquery.Document) Field {
	sel := first(doc, e.sel.Image)
	if sel == nil {
		return Null()
	}
	src, ok := sel.Attr("src")
	if !ok {
		return Null()
	}
	return Present(src)
}

// Description returns the feature bullets, or the description block when
// the page has no bullets.
func (e *Extractor) Description(doc *goquery.Document) Field {
	for _, selector := range e.sel.Description {
		if f := textField(doc, selector, Null()); f.Found {
			return f
		}
	}
	return Null()
}

// Bought returns the "recently bought" social-proof text.
func (e *Extractor) Bought(doc *goquery.Document) Field {
	return textField(doc, e.sel.Bought, Null())
}

func textField(doc *goquery.Document, selector string, missing Field) Field {
	sel := first(doc, selector)
	if sel == nil {
		return missing
	}
	return Present(strings.TrimSpace(sel.Text()))
}

func first(doc *goquery.Document, selector string) *goquery.Selection {
	if doc == nil || selector == "" {
		return nil
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel
}
