// Package http provides the REST API over sweeps and stored records.
//
// Endpoints:
//   - Health: /health
//   - Catalog: /api/v1/categories
//   - Live sweep: GET /api/v1/:category/scrape
//   - Refresh: POST /api/v1/:category/update
//   - Stored records: GET and POST /api/v1/:category
//   - Summary: /api/v1/:category/summary
//   - History: /api/v1/sweeps
//
// Filters shared by scrape and the stored-record reads: ano, chave and tipo
// (repeatable or comma-separated), quantidadeMinima, quantidadeMaxima,
// valorMinimo, valorMaximo. Endpoints that need the store answer 503 when
// persistence is disabled.
//
// Example Usage:
//
//	handlers := http.NewHandlers(aggregator, store, logger)
//	handlers.Register(router, middleware.GlobalRateLimit(sweepLimits))
package http
