package service

import (
	"context"
	"crypto/rand"
	"errors"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

// DefaultInterval is the capture tick period.
const DefaultInterval = time.Second

// FrameSource supplies the current tracking frame.
type FrameSource interface {
	// CurrentFrame returns the latest frame, or domain.ErrNoFrame when
	// tracking has nothing to offer right now.
	CurrentFrame(ctx context.Context) (*domain.Frame, error)
}

// Encoder compresses a snapshot image.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// CaptureStore persists images and the session manifest.
type CaptureStore interface {
	WriteImage(session string, data []byte) (string, error)
	WriteManifest(session string, records []domain.SnapshotRecord) error
}

// Metrics receives capture telemetry.
type Metrics interface {
	RecordTick(result string)
	ObserveImageWrite(d time.Duration, bytes int)
	RecordManifestWrite(ok bool)
	SetCaptureActive(active bool)
	SetRecords(n int)
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(string) {}
func (nopMetrics) ObserveImageWrite(time.Duration, int) {}
func (nopMetrics) RecordManifestWrite(bool) {}
func (nopMetrics) SetCaptureActive(bool) {}
func (nopMetrics) SetRecords(int) {}

// SamplerConfig configures a Sampler.
type SamplerConfig struct {
	// Interval is the tick period. Defaults to DefaultInterval.
	Interval time.Duration

	// Orientation selects the orientation encoding of records.
	Orientation domain.OrientationMode

	// RequireNormalTracking skips frames whose tracking is limited.
	RequireNormalTracking bool

	// Scheduler drives ticks. Defaults to a TickerScheduler.
	Scheduler Scheduler

	// Metrics receives telemetry. Optional.
	Metrics Metrics

	// Logger is the structured logger.
	Logger *slog.Logger

	// Clock is used for run IDs and start times. Defaults to time.Now.
	Clock func() time.Time
}

// Sampler pulls frames at a fixed rate while a capture is active and turns
// each into an image file plus a metadata record. Records are flushed as the
// session manifest when capture stops.
//
// Ticks run on the scheduler goroutine. Start, Stop and Status may be called
// from any goroutine.
type Sampler struct {
	source  FrameSource
	encoder Encoder
	store   CaptureStore
	sched   Scheduler
	metrics Metrics
	logger  *slog.Logger
	clock   func() time.Time

	interval    time.Duration
	orientation domain.OrientationMode
	requireNorm bool

	// ctrl serializes Start and Stop.
	ctrl sync.Mutex

	// mu guards the capture state below. A tick holds it for its duration.
	mu           sync.Mutex
	state        State
	session      string
	runID        string
	startedAt    time.Time
	records      []domain.SnapshotRecord
	dropped      int
	lastTracking string
	lastFile     string
	lastFlush    *FlushResult
	runCtx       context.Context
	cancelRun    context.CancelFunc

	noFrameLog *rate.Limiter
}

// NewSampler creates an idle sampler.
func NewSampler(source FrameSource, encoder Encoder, store CaptureStore, cfg SamplerConfig) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Orientation == "" {
		cfg.Orientation = domain.OrientationLegacy
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewTickerScheduler()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Sampler{
		source:      source,
		encoder:     encoder,
		store:       store,
		sched:       cfg.Scheduler,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		clock:       cfg.Clock,
		interval:    cfg.Interval,
		orientation: cfg.Orientation,
		requireNorm: cfg.RequireNormalTracking,
		state:       StateIdle,
		noFrameLog:  rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// ============================================================================
// Capture Lifecycle
// ============================================================================

// Start begins capturing into the named session. The session folder must
// already have been created. Starting while a capture is active fails with
// domain.ErrCaptureActive.
func (s *Sampler) Start(ctx context.Context, session string) error {
	if err := domain.ValidateSessionName(session); err != nil {
		return err
	}

	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	s.mu.Lock()
	if s.state != StateIdle {
		active := s.session
		s.mu.Unlock()
		return domain.ErrCaptureActive.WithDetails(active)
	}

	now := s.clock()
	runID, err := newRunID(now)
	if err != nil {
		s.mu.Unlock()
		return domain.ErrInternal.WithCause(err)
	}

	s.runCtx, s.cancelRun = context.WithCancel(context.Background())
	s.state = StateCapturing
	s.session = session
	s.runID = runID
	s.startedAt = now
	s.records = make([]domain.SnapshotRecord, 0, 64)
	s.dropped = 0
	s.lastTracking = ""
	s.lastFile = ""
	s.mu.Unlock()

	if err := s.sched.Start(s.interval, s.tick); err != nil {
		s.mu.Lock()
		s.resetLocked()
		s.mu.Unlock()
		return domain.ErrInternal.WithDetails("arm scheduler").WithCause(err)
	}

	s.metrics.SetCaptureActive(true)
	s.metrics.SetRecords(0)
	s.logger.InfoContext(ctx, "capture started",
		"session", session,
		"run_id", runID,
		"interval", s.interval,
		"orientation", string(s.orientation))
	return nil
}

// Stop ends the active capture. It waits for an in-flight tick to finish,
// then writes the accumulated records as the session manifest. A manifest
// failure is logged and reported in the result, never returned as an error.
// Stop while idle is a no-op and returns a zero result.
func (s *Sampler) Stop(ctx context.Context) FlushResult {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	s.mu.Lock()
	if s.state != StateCapturing {
		s.mu.Unlock()
		return FlushResult{}
	}
	s.state = StateStopping
	s.mu.Unlock()

	// Drain: returns once the tick goroutine has exited.
	s.sched.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelRun()
	result := FlushResult{
		Session: s.session,
		RunID:   s.runID,
		Records: len(s.records),
	}

	if len(s.records) > 0 {
		if err := s.store.WriteManifest(s.session, s.records); err != nil {
			result.Error = err.Error()
			s.metrics.RecordManifestWrite(false)
			s.logger.ErrorContext(ctx, "manifest write failed",
				"session", s.session,
				"run_id", s.runID,
				"records", len(s.records),
				"error", err)
		} else {
			result.Written = true
			s.metrics.RecordManifestWrite(true)
		}
	}

	s.logger.InfoContext(ctx, "capture stopped",
		"session", s.session,
		"run_id", s.runID,
		"records", result.Records,
		"dropped", s.dropped,
		"duration", s.clock().Sub(s.startedAt))

	s.lastFlush = &result
	s.resetLocked()
	s.metrics.SetCaptureActive(false)
	s.metrics.SetRecords(0)
	return result
}

// resetLocked returns the sampler to idle. Caller holds mu.
func (s *Sampler) resetLocked() {
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.state = StateIdle
	s.session = ""
	s.runID = ""
	s.startedAt = time.Time{}
	s.records = nil
	s.runCtx, s.cancelRun = nil, nil
}

// Status returns a snapshot of the sampler state.
func (s *Sampler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:        s.state,
		Session:      s.session,
		RunID:        s.runID,
		Records:      len(s.records),
		Dropped:      s.dropped,
		LastTracking: s.lastTracking,
		LastFile:     s.lastFile,
	}
	if !s.startedAt.IsZero() {
		st.StartedAt = s.startedAt.UnixMilli()
	}
	if s.lastFlush != nil {
		flush := *s.lastFlush
		st.LastFlush = &flush
	}
	return st
}

// ============================================================================
// Tick
// ============================================================================

// tick runs one capture step. No failure here stops the capture; the frame
// is dropped and the next tick proceeds.
func (s *Sampler) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCapturing {
		return
	}
	ctx := s.runCtx

	frame, err := s.source.CurrentFrame(ctx)
	if frame == nil || err != nil {
		if err == nil || errors.Is(err, domain.ErrNoFrame) {
			if s.noFrameLog.Allow() {
				s.logger.Debug("no tracking frame", "session", s.session)
			}
			return
		}
		s.dropLocked(TickSourceError, "frame source failed", err)
		return
	}

	s.lastTracking = frame.Tracking.Describe()
	if s.requireNorm && !frame.Tracking.IsNormal() {
		s.dropLocked(TickTrackingLimited, "tracking not normal", errors.New(s.lastTracking))
		return
	}

	if frame.Snapshot == nil {
		s.dropLocked(TickEncodeError, "frame has no snapshot", domain.ErrEncode)
		return
	}
	data, err := s.encoder.Encode(frame.Snapshot)
	if err != nil {
		s.dropLocked(TickEncodeError, "snapshot encode failed", err)
		return
	}

	began := time.Now()
	name, err := s.store.WriteImage(s.session, data)
	if err != nil {
		s.dropLocked(TickWriteError, "image write failed", err)
		return
	}
	s.metrics.ObserveImageWrite(time.Since(began), len(data))

	s.records = append(s.records, domain.RecordFromFrame(name, frame, s.orientation))
	s.lastFile = name
	s.metrics.RecordTick(TickOK)
	s.metrics.SetRecords(len(s.records))
}

func (s *Sampler) dropLocked(result, msg string, err error) {
	s.dropped++
	s.metrics.RecordTick(result)

	level := slog.LevelWarn
	if result == TickTrackingLimited {
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, msg,
		"session", s.session,
		"result", result,
		"error", err)
}

// newRunID returns a lowercase ULID for a capture run.
func newRunID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return strings.ToLower(id.String()), nil
}
