// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for log shippers
//   - Development: colored console output
//
// Scraper and sweep components take a plain *zap.Logger and attach
// request context as fields:
//
//	logger := logging.NewDefault()
//	logger.Info("page fetched", zap.String("url", u), zap.Int("year", 2021))
package logging
