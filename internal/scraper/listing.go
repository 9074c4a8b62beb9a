package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-scraper/internal/metrics"
)

// Crawl status labels.
const (
	CrawlStatusSucceeded = "succeeded"
	CrawlStatusFailed    = "failed"
	CrawlStatusCanceled  = "canceled"
)

// ProductResolver resolves a single product URL.
type ProductResolver interface {
	Resolve(ctx context.Context, url string) (ProductRecord, error)
}

// ListingConfig controls the listing crawler.
type ListingConfig struct {
	Selectors Selectors
	// MaxPages caps the number of listing pages walked; 0 means no cap.
	MaxPages int
}

// ListingCrawler walks a paginated search listing and resolves every product
// it links to.
type ListingCrawler struct {
	pages    *PageFetcher
	resolver ProductResolver
	sel      Selectors
	maxPages int
	ids      IDGenerator
	logger   *zap.Logger
}

// NewListingCrawler builds a crawler. ids may be nil, in which case crawls
// are logged without an ID.
func NewListingCrawler(
	cfg ListingConfig,
	pages *PageFetcher,
	resolver ProductResolver,
	ids IDGenerator,
	logger *zap.Logger,
) *ListingCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPages := cfg.MaxPages
	if maxPages < 0 {
		maxPages = 0
	}
	return &ListingCrawler{
		pages:    pages,
		resolver: resolver,
		sel:      cfg.Selectors.WithDefaults(),
		maxPages: maxPages,
		ids:      ids,
		logger:   logger,
	}
}

// Crawl walks listingURL and every page after it with a fresh VisitedSet.
func (c *ListingCrawler) Crawl(ctx context.Context, listingURL string) ([]ProductRecord, error) {
	return c.CrawlWith(ctx, listingURL, NewVisitedSet())
}

// CrawlWith walks listingURL using visited to skip products already resolved.
// Records come back in page order, then link order within a page. A listing
// page that cannot be fetched fails the whole crawl and no records are
// returned; a product that cannot be fetched is dropped. Cancellation is
// all-or-nothing like a listing failure.
func (c *ListingCrawler) CrawlWith(ctx context.Context, listingURL string, visited *VisitedSet) (_ []ProductRecord, err error) {
	if visited == nil {
		visited = NewVisitedSet()
	}
	crawlID := c.newCrawlID()
	ctx, span := startSpan(ctx, "scraper.crawl_listing",
		attribute.String("crawl.id", crawlID),
		attribute.String("url.full", listingURL),
	)
	defer func() { endSpan(span, err) }()

	logger := c.logger.With(zap.String("crawl_id", crawlID), zap.String("listing_url", listingURL))
	logger.Info("crawl started")

	var (
		records []ProductRecord
		pageNum int
	)
	current := listingURL
	for current != "" {
		if err := ctx.Err(); err != nil {
			metrics.ObserveCrawl(CrawlStatusCanceled)
			return nil, fmt.Errorf("crawl canceled at %s: %w", current, err)
		}
		if c.maxPages > 0 && pageNum >= c.maxPages {
			logger.Warn("page limit reached", zap.Int("max_pages", c.maxPages), zap.String("next_url", current))
			break
		}
		pageNum++

		page, err := c.pages.Fetch(ctx, current)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				metrics.ObserveCrawl(CrawlStatusCanceled)
				return nil, fmt.Errorf("crawl canceled at %s: %w", current, ctxErr)
			}
			metrics.ObserveCrawl(CrawlStatusFailed)
			logger.Error("listing page fetch failed", zap.String("url", current), zap.Int("page", pageNum), zap.Error(err))
			return nil, fmt.Errorf("fetch listing page %s: %w", current, err)
		}
		metrics.ObserveListingPage(current)

		pageRecords, err := c.scrapePage(ctx, logger, current, page.Doc, visited)
		if err != nil {
			metrics.ObserveCrawl(CrawlStatusCanceled)
			logger.Warn("crawl canceled", zap.Int("page", pageNum), zap.Error(err))
			return nil, err
		}
		records = append(records, pageRecords...)
		logger.Info("listing page done",
			zap.Int("page", pageNum),
			zap.String("url", current),
			zap.Int("products", len(pageRecords)),
		)

		current = c.nextPageURL(logger, current, page.Doc)
		if current != "" {
			logger.Info("scraping next page", zap.String("url", current))
		}
	}

	if err := ctx.Err(); err != nil {
		metrics.ObserveCrawl(CrawlStatusCanceled)
		return nil, fmt.Errorf("crawl canceled: %w", err)
	}

	span.SetAttributes(attribute.Int("crawl.pages", pageNum), attribute.Int("crawl.products", len(records)))
	metrics.ObserveCrawl(CrawlStatusSucceeded)
	logger.Info("crawl finished", zap.Int("pages", pageNum), zap.Int("products", len(records)), zap.Int("visited", visited.Len()))
	return records, nil
}

func (c *ListingCrawler) scrapePage(
	ctx context.Context,
	logger *zap.Logger,
	pageURL string,
	doc *goquery.Document,
	visited *VisitedSet,
) ([]ProductRecord, error) {
	var out []ProductRecord
	for _, productURL := range c.productLinks(logger, pageURL, doc) {
		if !visited.Add(productURL) {
			metrics.ObserveProduct(metrics.OutcomeSkipped)
			logger.Debug("product already visited", zap.String("url", productURL))
			continue
		}
		logger.Info("scraping product", zap.String("url", productURL))
		record, err := c.resolver.Resolve(ctx, productURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("crawl canceled at %s: %w", productURL, ctxErr)
			}
			metrics.ObserveProduct(metrics.OutcomeFailure)
			logger.Warn("product dropped", zap.String("url", productURL), zap.Error(err))
			continue
		}
		metrics.ObserveProduct(metrics.OutcomeSuccess)
		out = append(out, record)
	}
	return out, nil
}

func (c *ListingCrawler) productLinks(logger *zap.Logger, pageURL string, doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	var links []string
	doc.Find(c.sel.ProductLinks).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs, err := ResolveURL(pageURL, href)
		if err != nil {
			logger.Debug("skipping unparsable product link", zap.String("href", href), zap.Error(err))
			return
		}
		links = append(links, abs)
	})
	return links
}

func (c *ListingCrawler) nextPageURL(logger *zap.Logger, pageURL string, doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	next := doc.Find(c.sel.NextPage).First()
	if next.Length() == 0 {
		return ""
	}
	href, ok := next.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return ""
	}
	abs, err := ResolveURL(pageURL, href)
	if err != nil {
		logger.Warn("unparsable next page link", zap.String("href", href), zap.Error(err))
		return ""
	}
	return abs
}

func (c *ListingCrawler) newCrawlID() string {
	if c.ids == nil {
		return ""
	}
	id, err := c.ids.NewID()
	if err != nil {
		c.logger.Warn("crawl id generation failed", zap.Error(err))
		return ""
	}
	return id
}
