package logger

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// Key patterns whose values are never logged.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
}

const redactedValue = "***REDACTED***"

// redactor rewrites attributes before they reach the handler.
type redactor struct {
	home string
}

func newRedactor(home string) *redactor {
	if home != "" {
		home = filepath.Clean(home)
	}
	return &redactor{home: home}
}

func (r *redactor) redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if r.home != "" {
			if short := ShortenHome(s, r.home); short != s {
				return slog.String(a.Key, short)
			}
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = r.redact(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// ShortenHome replaces a leading home directory in path with ~.
// Only whole path components match: /home/al does not shorten /home/alice.
func ShortenHome(path, home string) string {
	if home == "" || home == "/" {
		return path
	}
	if path == home {
		return "~"
	}
	prefix := home + string(filepath.Separator)
	if strings.HasPrefix(path, prefix) {
		return "~" + string(filepath.Separator) + path[len(prefix):]
	}
	return path
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
