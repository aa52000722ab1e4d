package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/telemetry/logger"
)

// Config holds the control server configuration.
type Config struct {
	// SocketPath is the Unix socket to listen on.
	SocketPath string
	// ReadTimeout bounds reading one request once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration
	// IdleTimeout closes connections idle between requests.
	IdleTimeout time.Duration
}

// Default timeouts.
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute
)

// Server represents the local control server.
type Server struct {
	cfg      Config
	handler  *Handler
	logger   *slog.Logger
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
	connSeq  atomic.Uint64

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// New creates a new control server.
func New(cfg Config, handler *Handler, log *slog.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  log,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Addr returns the socket path.
func (s *Server) Addr() string {
	return s.cfg.SocketPath
}

// Listen creates the socket. A stale socket file left by a previous process
// is replaced; a live one is an error.
func (s *Server) Listen() error {
	path := s.cfg.SocketPath
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := removeStaleSocket(path); err != nil {
		return err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = ln
	s.running.Store(true)
	s.logger.Info("control socket listening", "path", path)
	return nil
}

// Serve accepts connections until Shutdown. Listen must succeed first.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("control server is not listening")
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.serveConn(ctx, conn)
		}()
	}
}

// ListenAndServe starts the control server.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Shutdown gracefully shuts down the server.
//
// It closes the listener, closes idle connections, waits for in-flight
// requests (respecting ctx) and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
		if errors.Is(closeErr, net.ErrClosed) {
			closeErr = nil
		}
	}

	// Unblock connections waiting for their next request.
	s.connMu.Lock()
	for c := range s.conns {
		_ = c.SetReadDeadline(time.Now())
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := os.Remove(s.cfg.SocketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("remove control socket", "path", s.cfg.SocketPath, "error", err)
	}
	s.logger.Info("control socket closed")
	return closeErr
}

func (s *Server) track(c net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	id := "c" + strconv.FormatUint(s.connSeq.Add(1), 10)
	ctx = logger.WithConnID(ctx, id)
	log := s.logger.With("conn_id", id)
	log.Debug("control connection opened")
	defer log.Debug("control connection closed")

	br := bufio.NewReaderSize(conn, MaxLineLength)
	for {
		if !s.running.Load() {
			return
		}
		// Idle between requests; tighten once the first byte arrives.
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if _, err := br.Peek(1); err != nil {
			s.logReadError(log, err)
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}

		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			log.Warn("control request too long", "limit", MaxLineLength)
			s.write(conn, encodeResponse(errorResponse(
				domain.ErrUnknownCommand.WithDetails("request line too long"))))
			return
		}
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			s.logReadError(log, err)
			return
		}

		resp := s.handler.Execute(ctx, string(line))
		if !s.write(conn, encodeResponse(resp)) {
			return
		}
		if err != nil {
			// Final unterminated line already answered.
			return
		}
	}
}

func (s *Server) write(conn net.Conn, data []byte) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return false
	}
	_, err := conn.Write(data)
	return err == nil
}

func (s *Server) logReadError(log *slog.Logger, err error) {
	if errors.Is(err, io.EOF) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		if s.running.Load() {
			log.Debug("control connection timed out")
		}
		return
	}
	log.Debug("control connection read error", "error", err)
}

// removeStaleSocket deletes path if it is a socket nobody is listening on.
func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat socket: %w", err)
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}

	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%s: another recorder is listening", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}
