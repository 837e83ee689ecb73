/*
Package monitoring provides Prometheus metrics for the API and the scraping pipeline.

# Overview

Metrics live on a dedicated registry so tests and multiple servers in one
process do not collide on the default registerer.

  - API requests (count, latency) via a Gin middleware
  - Upstream fetches by status, fetch latency, circuit breaker state
  - Report pages by outcome and rows dropped by reason
  - Sweep duration and produced records per category

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

A nil *Metrics is accepted everywhere and records nothing.
*/
package monitoring
