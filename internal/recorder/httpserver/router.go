package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/arsnap-go/internal/core/service"
)

// DefaultRateLimit bounds requests per second across all clients.
const DefaultRateLimit = 50

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Metrics serves /metrics. Required.
	Metrics http.Handler

	// Status reports the sampler state for /status. Optional.
	Status func() service.Status

	// Ready reports whether the recorder can write captures. Optional;
	// nil always reports ready.
	Ready func() error

	// Logger for request logging.
	Logger *slog.Logger

	// RateLimit is requests/second; zero selects DefaultRateLimit and a
	// negative value disables limiting.
	RateLimit int
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	middlewares := []Middleware{Recover(logger), RequestID(), AccessLog(logger)}
	switch {
	case cfg.RateLimit == 0:
		middlewares = append(middlewares, RateLimit(DefaultRateLimit))
	case cfg.RateLimit > 0:
		middlewares = append(middlewares, RateLimit(cfg.RateLimit))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", cfg.Metrics)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(); err != nil {
				writeError(w, http.StatusServiceUnavailable, "AR-HTTP-5030", err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if cfg.Status != nil {
		mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, cfg.Status())
		})
	}

	return Chain(mux, middlewares...)
}
