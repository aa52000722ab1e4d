// Package main provides the entry point for arsnap-recorder.
//
// arsnap-recorder owns the frame source and the capture store. While a
// capture is active it samples one tracking frame per interval, saves the
// camera image as a JPEG in the session folder and remembers the pose and
// intrinsics; stopping writes them as the folder's info.json manifest.
//
// Capture is controlled over a Unix socket (see arsnap-cli). Prometheus
// metrics, health and status are served on metrics.addr when set.
//
// Usage:
//
//	arsnap-recorder [-config recorder.yaml]
//	arsnap-recorder -version
//
// Settings come from defaults, then the YAML file, then ARSNAP_* environment
// variables. Only log.level is applied on reload; other changes are logged
// and take effect at the next start.
package main
