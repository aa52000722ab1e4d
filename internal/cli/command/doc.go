// Package command defines the arsnap-cli commands using urfave/cli/v2.
//
//   - root.go: application, global flags, shared helpers
//   - session.go: start, stop, status, list and inspect captures
//   - system.go: recorder health, configuration reload, version
//
// Commands that change capture state go through the recorder's control
// socket. Read-only commands may use the metrics listener instead when
// --http is given, and inspect/list read session folders directly.
package command
