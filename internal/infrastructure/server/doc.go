// Package server wires the vitibrasil service together.
//
// Server Lifecycle:
//  1. Load configuration from environment (.env first when present)
//  2. Initialize logger and metrics
//  3. Build the upstream client and sweep aggregator
//  4. Open the store and apply migrations, unless persistence is disabled
//  5. Setup HTTP routes, middleware and the progress WebSocket
//  6. Serve until a signal, then drain and close
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(ctx, cfg)
//	go srv.Run()
//	defer srv.Close()
package server
