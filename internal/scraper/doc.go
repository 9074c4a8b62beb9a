// Package scraper implements product page extraction and the paginated
// listing crawler: the page fetcher contract, the field extractor, the
// product resolver, and the loop that walks "next page" links while keeping
// a per-crawl visited set.
package scraper
