// Package ws streams sweep progress to WebSocket clients.
//
// Hub implements sweep.Observer. Every connected client receives one
// "sweep" frame per progress event, optionally restricted to a category
// with ?category=.
//
// Message Types (Client → Server):
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - system: connection established
//   - sweep: progress event (started, page, finished)
//   - pong: ping reply
//   - error: unknown client message
//
// Example Usage:
//
//	hub := ws.NewHub(logger)
//	aggregator.SetObserver(hub)
//	router.GET("/ws/sweeps", hub.HandleConnection)
package ws
