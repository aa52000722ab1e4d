// Package connection reaches a running arsnap-recorder from arsnap-cli.
//
//   - socket.go: control socket client; the only way to start and stop a capture
//   - http.go: read-only client for the metrics listener (/status, /healthz, /readyz)
//
// Both implement StatusReader so `arsnap-cli session status` can use either.
package connection
