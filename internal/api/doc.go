// Package api hosts the HTTP server, middleware, and JSON handlers for the
// scraper. Notable routes:
//   - POST /product resolves one product page.
//   - POST /listing crawls a paginated listing and every product it links to.
//   - POST /Scrappy-product and /Scrappy-list are kept as aliases for older
//     clients.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
