package scraper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Resolver turns one product URL into a ProductRecord.
type Resolver struct {
	pages     *PageFetcher
	extractor *Extractor
	logger    *zap.Logger
}

// NewResolver combines a page fetcher and an extractor.
func NewResolver(pages *PageFetcher, extractor *Extractor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{pages: pages, extractor: extractor, logger: logger}
}

// Resolve fetches url and extracts every field. A fetch failure is returned
// as an error and no record; missing fields never fail.
func (r *Resolver) Resolve(ctx context.Context, url string) (_ ProductRecord, err error) {
	ctx, span := startSpan(ctx, "scraper.resolve_product", attribute.String("url.full", url))
	defer func() { endSpan(span, err) }()

	page, err := r.pages.Fetch(ctx, url)
	if err != nil {
		return ProductRecord{}, fmt.Errorf("resolve product: %w", err)
	}
	record := r.extractor.Extract(page.Doc, url)
	r.logger.Debug("resolved product",
		zap.String("url", url),
		zap.Bool("title_found", record.Title.Found),
		zap.Bool("price_found", record.Price.Found),
	)
	return record, nil
}
