// Package logger provides structured logging for arsnap.
//
//   - logger.go: slog-based Logger, output format and dynamic level
//   - context.go: context propagation of connection and run IDs
//   - redact.go: attribute redaction (sensitive keys, home directory)
//
// The recorder daemon builds one Logger at startup and hands its Slog() view
// to components, which log with key/value pairs.
package logger
