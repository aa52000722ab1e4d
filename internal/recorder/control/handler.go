package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/core/service"
	"github.com/yndnr/arsnap-go/internal/telemetry/logger"
)

// SessionStore creates session folders.
type SessionStore interface {
	CreateSession(session string) error
}

// Capture is the sampler surface driven by the socket.
type Capture interface {
	Start(ctx context.Context, session string) error
	Stop(ctx context.Context) service.FlushResult
	Status() service.Status
}

// CommandMetrics counts handled commands.
type CommandMetrics interface {
	RecordCommand(command, result string)
}

// ReloadFunc re-applies reloadable configuration.
type ReloadFunc func(ctx context.Context) error

// Handler executes control commands.
type Handler struct {
	store   SessionStore
	capture Capture
	reload  ReloadFunc
	metrics CommandMetrics
	logger  *slog.Logger

	// lifecycle serializes start and stop so a second start cannot wipe the
	// folder of a capture that is just beginning.
	lifecycle sync.Mutex
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithReload sets the function run by the reload command.
func WithReload(fn ReloadFunc) HandlerOption {
	return func(h *Handler) {
		h.reload = fn
	}
}

// WithMetrics sets the command counter.
func WithMetrics(m CommandMetrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a new Handler.
func NewHandler(store SessionStore, capture Capture, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:   store,
		capture: capture,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute runs one request line and returns its response.
func (h *Handler) Execute(ctx context.Context, line string) Response {
	cmd, arg := ParseRequest(line)
	began := time.Now()

	var resp Response
	switch cmd {
	case CmdStart:
		resp = h.handleStart(ctx, arg)
	case CmdStop:
		resp = h.handleStop(ctx)
	case CmdStatus:
		resp = h.handleStatus()
	case CmdReload:
		resp = h.handleReload(ctx)
	default:
		if cmd == "" {
			cmd = "empty"
		}
		resp = errorResponse(domain.ErrUnknownCommand.WithDetails(cmd))
		cmd = "unknown"
	}

	result := "ok"
	if !resp.OK {
		result = "error"
	}
	if h.metrics != nil {
		h.metrics.RecordCommand(cmd, result)
	}
	h.log(ctx).DebugContext(ctx, "control command",
		"command", cmd,
		"result", result,
		"duration", time.Since(began))
	return resp
}

// handleStart creates the session folder, then starts capture. A failed
// create leaves the sampler idle.
func (h *Handler) handleStart(ctx context.Context, session string) Response {
	if err := domain.ValidateSessionName(session); err != nil {
		return errorResponse(err)
	}

	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	if st := h.capture.Status(); st.State != service.StateIdle {
		return errorResponse(domain.ErrCaptureActive.WithDetails(st.Session))
	}

	if err := h.store.CreateSession(session); err != nil {
		h.log(ctx).WarnContext(ctx, "session not started", "session", session, "error", err)
		return errorResponse(err)
	}
	if err := h.capture.Start(ctx, session); err != nil {
		return errorResponse(err)
	}

	st := h.capture.Status()
	ctx = logger.WithRunID(ctx, st.RunID)
	h.log(ctx).InfoContext(ctx, "session started", "session", session)
	return Response{OK: true, Status: &st}
}

func (h *Handler) handleStop(ctx context.Context) Response {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	flush := h.capture.Stop(ctx)
	st := h.capture.Status()
	resp := Response{OK: true, Status: &st}
	if flush.Session != "" {
		resp.Flush = &flush
		ctx = logger.WithRunID(ctx, flush.RunID)
		h.log(ctx).InfoContext(ctx, "session stopped",
			"session", flush.Session,
			"records", flush.Records)
	}
	return resp
}

func (h *Handler) handleStatus() Response {
	st := h.capture.Status()
	return Response{OK: true, Status: &st}
}

func (h *Handler) handleReload(ctx context.Context) Response {
	if h.reload == nil {
		return errorResponse(domain.ErrUnknownCommand.WithDetails("reload is not configured"))
	}
	if err := h.reload(ctx); err != nil {
		return errorResponse(domain.ErrInternal.WithDetails("reload").WithCause(err))
	}
	st := h.capture.Status()
	return Response{OK: true, Status: &st}
}

// log tags the handler logger with the connection and run carried by ctx.
func (h *Handler) log(ctx context.Context) *slog.Logger {
	l := h.logger
	if id := logger.ConnIDFromContext(ctx); id != "" {
		l = l.With("conn_id", id)
	}
	if id := logger.RunIDFromContext(ctx); id != "" {
		l = l.With("run_id", id)
	}
	return l
}
