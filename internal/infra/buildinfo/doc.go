// Package buildinfo provides build information for arsnap.
//
// Version, Commit and BuildTime are injected via ldflags. When they are not,
// Get falls back to the module and VCS data embedded by the Go toolchain.
//
// Usage:
//
//	go build -ldflags "-X github.com/yndnr/arsnap-go/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
