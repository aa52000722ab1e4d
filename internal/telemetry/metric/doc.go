// Package metric provides Prometheus metrics for arsnap.
//
//   - prometheus.go: registry, capture pipeline hooks and HTTP handler
//   - collector.go: scrape-time storage gauges
//
// Metrics include tick outcomes, capture state, image write latency and
// volume, manifest writes and control commands. They are exposed at /metrics
// in Prometheus format when the recorder's metrics listener is enabled.
package metric
