package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-scraper/internal/config"
	"github.com/JakeFAU/listing-scraper/internal/logging"
	"github.com/JakeFAU/listing-scraper/internal/metrics"
	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

// Error messages returned to clients. Details stay in the logs.
const (
	msgFetchFailed   = "failed to retrieve content from url"
	msgCrawlFailed   = "an error occurred while processing the request"
	msgURLRequired   = "url is required"
	msgInvalidJSON   = "invalid JSON"
	msgInvalidURL    = "url must be an absolute http or https URL"
	maxRequestBodyKB = 64
)

// ProductResolver resolves a single product page.
type ProductResolver interface {
	Resolve(ctx context.Context, url string) (scraper.ProductRecord, error)
}

// ListingScraper crawls a listing with a fresh visited set per call.
type ListingScraper interface {
	Crawl(ctx context.Context, listingURL string) ([]scraper.ProductRecord, error)
}

// Server wires HTTP handlers to the scraper.
type Server struct {
	handler  http.Handler
	resolver ProductResolver
	listings ListingScraper
	ids      scraper.IDGenerator
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	resolver ProductResolver,
	listings ListingScraper,
	ids scraper.IDGenerator,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		resolver: resolver,
		listings: listings,
		ids:      ids,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware(ids))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	if timeout := cfg.RequestTimeout(); timeout > 0 {
		r.Use(timeoutMiddleware(timeout))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/product", s.scrapeProduct)
		r.Post("/listing", s.scrapeListing)
		r.Post("/Scrappy-product", s.scrapeProduct)
		r.Post("/Scrappy-list", s.scrapeListing)
	})

	s.handler = otelhttp.NewHandler(r, "listing-scraper",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

// Handler returns the traced router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type scrapeRequest struct {
	URL string `json:"url"`
}

func (s *Server) scrapeProduct(w http.ResponseWriter, r *http.Request) {
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}
	logger := logging.FromContext(r.Context(), s.logger)

	record, err := s.resolver.Resolve(r.Context(), target)
	if err != nil {
		logger.Warn("product scrape failed", zap.String("url", target), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) scrapeListing(w http.ResponseWriter, r *http.Request) {
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}
	logger := logging.FromContext(r.Context(), s.logger)

	records, err := s.listings.Crawl(r.Context(), target)
	if err != nil {
		logger.Error("listing crawl failed", zap.String("url", target), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgCrawlFailed)
		return
	}
	if len(records) == 0 {
		logger.Warn("listing crawl returned no products", zap.String("url", target))
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	logger.Info("listing crawl complete", zap.String("url", target), zap.Int("products", len(records)))
	writeJSON(w, http.StatusOK, records)
}

// decodeTarget reads {"url": ...} and writes a 400 when it is unusable.
func decodeTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req scrapeRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyKB<<10)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, msgURLRequired)
			return "", false
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return "", false
	}
	target := strings.TrimSpace(req.URL)
	if target == "" {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return "", false
	}
	if err := scraper.ValidateTargetURL(target); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidURL)
		return "", false
	}
	return target, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
