// Package httpserver serves the recorder's read-only HTTP endpoints.
//
//	GET /metrics   Prometheus exposition
//	GET /healthz   liveness
//	GET /readyz    storage root reachable
//	GET /status    sampler status as JSON
//
// Capture is controlled only through the local socket; nothing here mutates
// recorder state.
package httpserver
