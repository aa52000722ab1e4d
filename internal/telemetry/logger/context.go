package logger

import "context"

type contextKey string

const (
	loggerKey contextKey = "arsnap.logger"
	connIDKey contextKey = "arsnap.conn_id"
	runIDKey  contextKey = "arsnap.run_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithConnID tags the context with a control connection ID.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext extracts the control connection ID from context.
func ConnIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(connIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRunID tags the context with a capture run ID.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the capture run ID from context.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger
// with the connection and run IDs carried by the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if id := ConnIDFromContext(ctx); id != "" {
		l = l.With("conn_id", id)
	}
	if id := RunIDFromContext(ctx); id != "" {
		l = l.With("run_id", id)
	}

	return l.WithContext(ctx)
}
