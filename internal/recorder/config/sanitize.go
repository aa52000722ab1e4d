package config

import "github.com/yndnr/arsnap-go/internal/telemetry/logger"

// Sanitize returns a copy of the config with the user's home directory
// replaced by ~ in every path field.
//
// This is used for logging configuration without exposing account names.
func Sanitize(cfg *RecorderConfig, home string) *RecorderConfig {
	sanitized := *cfg

	sanitized.Storage.Root = logger.ShortenHome(sanitized.Storage.Root, home)
	sanitized.Source.Replay.Dir = logger.ShortenHome(sanitized.Source.Replay.Dir, home)
	sanitized.Control.SocketPath = logger.ShortenHome(sanitized.Control.SocketPath, home)

	return &sanitized
}
