// Package main is the entry point for the vitibrasil API server.
//
// The server provides:
//   - live sweeps of the viticulture report site, filtered per request
//   - refresh of the stored tables and queries over them
//   - a WebSocket feed of sweep progress
//   - Prometheus metrics
//
// Configuration:
//   - Environment variables, after an optional .env file
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000
//
//	# Development mode (colored logs, debug level), no database
//	./server -dev -no-store
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
