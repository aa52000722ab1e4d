package service

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/storage/capturestore"
)

// ============================================================================
// Test doubles
// ============================================================================

// manualScheduler delivers ticks only when the test calls Tick.
type manualScheduler struct {
	mu      sync.Mutex
	fn      func()
	running bool
	starts  int
	stops   int
}

func (m *manualScheduler) Start(_ time.Duration, fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errSchedulerRunning
	}
	m.fn = fn
	m.running = true
	m.starts++
	return nil
}

func (m *manualScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.stops++
	}
	m.running = false
}

func (m *manualScheduler) Tick() {
	m.mu.Lock()
	fn, running := m.fn, m.running
	m.mu.Unlock()
	if running {
		fn()
	}
}

type sourceResult struct {
	frame *domain.Frame
	err   error
}

// scriptedSource replays results in order, then reports no frame.
type scriptedSource struct {
	mu      sync.Mutex
	results []sourceResult
}

func (s *scriptedSource) push(r ...sourceResult) {
	s.mu.Lock()
	s.results = append(s.results, r...)
	s.mu.Unlock()
}

func (s *scriptedSource) CurrentFrame(context.Context) (*domain.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return nil, domain.ErrNoFrame
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.frame, r.err
}

type stubEncoder struct {
	err error
}

func (e stubEncoder) Encode(image.Image) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

// countingStore wraps a real store, counts calls and can inject failures.
type countingStore struct {
	inner          CaptureStore
	imageErr       error
	manifestErr    error
	imageWrites    int
	manifestWrites int
}

func (c *countingStore) WriteImage(session string, data []byte) (string, error) {
	c.imageWrites++
	if c.imageErr != nil {
		return "", c.imageErr
	}
	return c.inner.WriteImage(session, data)
}

func (c *countingStore) WriteManifest(session string, records []domain.SnapshotRecord) error {
	c.manifestWrites++
	if c.manifestErr != nil {
		return c.manifestErr
	}
	return c.inner.WriteManifest(session, records)
}

type recordingMetrics struct {
	mu        sync.Mutex
	ticks     map[string]int
	manifests map[bool]int
	active    bool
	records   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ticks: map[string]int{}, manifests: map[bool]int{}}
}

func (m *recordingMetrics) RecordTick(result string) {
	m.mu.Lock()
	m.ticks[result]++
	m.mu.Unlock()
}
func (m *recordingMetrics) ObserveImageWrite(time.Duration, int) {}
func (m *recordingMetrics) RecordManifestWrite(ok bool) {
	m.mu.Lock()
	m.manifests[ok]++
	m.mu.Unlock()
}
func (m *recordingMetrics) SetCaptureActive(active bool) {
	m.mu.Lock()
	m.active = active
	m.mu.Unlock()
}
func (m *recordingMetrics) SetRecords(n int) {
	m.mu.Lock()
	m.records = n
	m.mu.Unlock()
}

// steppingClock advances one second per call.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFrameAt(x float32) *domain.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	tf := domain.IdentityMat4()
	tf.Columns[3] = domain.Vec4{X: x, Y: 1.5, Z: -0.3, W: 1}
	return &domain.Frame{
		Transform:  tf,
		Intrinsics: domain.NewIntrinsics(1445.5, 1445.5, 960, 720),
		Snapshot:   img,
		Tracking:   domain.TrackingState{Status: domain.TrackingNormal},
	}
}

type harness struct {
	store   *capturestore.Store
	wrapped *countingStore
	source  *scriptedSource
	sched   *manualScheduler
	metrics *recordingMetrics
	sampler *Sampler
}

func newHarness(t *testing.T, cfg SamplerConfig, enc Encoder) *harness {
	t.Helper()
	clock := &steppingClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)}
	store, err := capturestore.New(capturestore.Config{
		Root:   t.TempDir(),
		Clock:  clock.Now,
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("capturestore.New: %v", err)
	}

	h := &harness{
		store:   store,
		wrapped: &countingStore{inner: store},
		source:  &scriptedSource{},
		sched:   &manualScheduler{},
		metrics: newRecordingMetrics(),
	}
	cfg.Scheduler = h.sched
	cfg.Metrics = h.metrics
	cfg.Logger = testLogger()
	if enc == nil {
		enc = stubEncoder{}
	}
	h.sampler = NewSampler(h.source, enc, h.wrapped, cfg)
	return h
}

func (h *harness) begin(t *testing.T, session string) {
	t.Helper()
	if err := h.store.CreateSession(session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := h.sampler.Start(context.Background(), session); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func jpgFiles(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	files := map[string]bool{}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == capturestore.ImageExt {
			files[e.Name()] = true
		}
	}
	return files
}

// ============================================================================
// Tests
// ============================================================================

func TestSampler_LivingRoomExample(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)
	h.begin(t, "living_room")

	h.source.push(sourceResult{frame: testFrameAt(0.1)})
	h.sched.Tick()

	if st := h.sampler.Status(); st.Records != 1 || st.LastFile != "20240101120000.jpg" {
		t.Fatalf("Status = %+v, want 1 record named 20240101120000.jpg", st)
	}

	res := h.sampler.Stop(context.Background())
	if !res.Written || res.Records != 1 || res.Session != "living_room" {
		t.Fatalf("Stop = %+v", res)
	}

	records, err := h.store.ReadManifest("living_room")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(records) != 1 || records[0].FileName != "20240101120000.jpg" {
		t.Fatalf("manifest = %+v", records)
	}
	if records[0].Position != [3]float32{0.1, 1.5, -0.3} {
		t.Errorf("Position = %v", records[0].Position)
	}
	if records[0].FocalLength != [2]float32{1445.5, 1445.5} {
		t.Errorf("FocalLength = %v", records[0].FocalLength)
	}
}

func TestSampler_NTicksProduceNFilesAndRecords(t *testing.T) {
	for _, n := range []int{1, 5, 12} {
		h := newHarness(t, SamplerConfig{}, nil)
		h.begin(t, "hall")

		for i := 0; i < n; i++ {
			h.source.push(sourceResult{frame: testFrameAt(float32(i))})
			h.sched.Tick()
		}
		h.sampler.Stop(context.Background())

		records, err := h.store.ReadManifest("hall")
		if err != nil {
			t.Fatalf("n=%d ReadManifest: %v", n, err)
		}
		files := jpgFiles(t, h.store.SessionDir("hall"))
		if len(records) != n || len(files) != n {
			t.Fatalf("n=%d: %d records, %d files", n, len(records), len(files))
		}
		for i, rec := range records {
			if !files[rec.FileName] {
				t.Errorf("n=%d: record %d names missing file %q", n, i, rec.FileName)
			}
			if rec.Position[0] != float32(i) {
				t.Errorf("n=%d: record %d out of order: %v", n, i, rec.Position)
			}
		}
		if h.metrics.ticks[TickOK] != n {
			t.Errorf("n=%d: ok ticks = %d", n, h.metrics.ticks[TickOK])
		}
	}
}

func TestSampler_StopIsIdempotent(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)
	h.begin(t, "den")

	h.source.push(sourceResult{frame: testFrameAt(1)})
	h.sched.Tick()

	first := h.sampler.Stop(context.Background())
	second := h.sampler.Stop(context.Background())

	if !first.Written {
		t.Fatalf("first Stop = %+v, want written", first)
	}
	if second != (FlushResult{}) {
		t.Fatalf("second Stop = %+v, want zero result", second)
	}
	if h.wrapped.manifestWrites != 1 {
		t.Fatalf("manifest writes = %d, want 1", h.wrapped.manifestWrites)
	}
	if h.sched.stops != 1 {
		t.Fatalf("scheduler stops = %d, want 1", h.sched.stops)
	}
}

func TestSampler_NoFrameTick(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)
	h.begin(t, "porch")

	h.source.push(
		sourceResult{err: domain.ErrNoFrame},
		sourceResult{}, // nil frame, nil error
		sourceResult{err: domain.ErrNoFrame.WithDetails("relocalizing")},
	)
	for i := 0; i < 3; i++ {
		h.sched.Tick()
	}

	st := h.sampler.Status()
	if st.Records != 0 || st.Dropped != 0 || st.LastFile != "" {
		t.Fatalf("Status = %+v, want untouched counters", st)
	}
	if h.wrapped.imageWrites != 0 {
		t.Fatalf("image writes = %d, want 0", h.wrapped.imageWrites)
	}
	if len(h.metrics.ticks) != 0 {
		t.Fatalf("tick metrics = %v, want none", h.metrics.ticks)
	}

	res := h.sampler.Stop(context.Background())
	if res.Records != 0 || res.Written {
		t.Fatalf("Stop = %+v, want no flush", res)
	}
	if h.wrapped.manifestWrites != 0 {
		t.Fatalf("manifest writes = %d, want 0 for an empty capture", h.wrapped.manifestWrites)
	}
	if files := jpgFiles(t, h.store.SessionDir("porch")); len(files) != 0 {
		t.Fatalf("files = %v, want none", files)
	}
}

func TestSampler_WriteFailureProducesNoRecord(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)
	h.begin(t, "attic")

	h.source.push(sourceResult{frame: testFrameAt(1)})
	h.sched.Tick()

	h.wrapped.imageErr = domain.ErrImageWrite.WithCause(errors.New("disk full"))
	h.source.push(sourceResult{frame: testFrameAt(2)})
	h.sched.Tick()

	h.wrapped.imageErr = nil
	h.source.push(sourceResult{frame: testFrameAt(3)})
	h.sched.Tick()

	st := h.sampler.Status()
	if st.State != StateCapturing {
		t.Fatalf("State = %s, a failed tick must not stop capture", st.State)
	}
	if st.Records != 2 || st.Dropped != 1 {
		t.Fatalf("Status = %+v, want 2 records and 1 dropped", st)
	}

	h.sampler.Stop(context.Background())
	records, err := h.store.ReadManifest("attic")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(records) != 2 || records[0].Position[0] != 1 || records[1].Position[0] != 3 {
		t.Fatalf("manifest = %+v", records)
	}
	if h.metrics.ticks[TickWriteError] != 1 {
		t.Errorf("write_error ticks = %d, want 1", h.metrics.ticks[TickWriteError])
	}
}

func TestSampler_EncodeFailureProducesNothing(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, stubEncoder{err: domain.ErrEncode})
	h.begin(t, "garage")

	h.source.push(sourceResult{frame: testFrameAt(1)})
	h.sched.Tick()

	noSnapshot := testFrameAt(2)
	noSnapshot.Snapshot = nil
	h.source.push(sourceResult{frame: noSnapshot})
	h.sched.Tick()

	if h.wrapped.imageWrites != 0 {
		t.Fatalf("image writes = %d, want 0", h.wrapped.imageWrites)
	}
	if st := h.sampler.Status(); st.Records != 0 || st.Dropped != 2 {
		t.Fatalf("Status = %+v", st)
	}
	if h.metrics.ticks[TickEncodeError] != 2 {
		t.Fatalf("encode_error ticks = %d, want 2", h.metrics.ticks[TickEncodeError])
	}
}

func TestSampler_SourceErrorIsDropped(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)
	h.begin(t, "yard")

	h.source.push(sourceResult{err: errors.New("camera unplugged")})
	h.sched.Tick()

	if st := h.sampler.Status(); st.Dropped != 1 || st.State != StateCapturing {
		t.Fatalf("Status = %+v", st)
	}
	if h.metrics.ticks[TickSourceError] != 1 {
		t.Fatalf("source_error ticks = %d", h.metrics.ticks[TickSourceError])
	}
}

func TestSampler_RequireNormalTracking(t *testing.T) {
	limited := testFrameAt(1)
	limited.Tracking = domain.TrackingState{Status: domain.TrackingLimited, Reason: domain.ReasonExcessiveMotion}

	tests := []struct {
		name        string
		require     bool
		wantRecords int
	}{
		{"accept limited", false, 1},
		{"require normal", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, SamplerConfig{RequireNormalTracking: tt.require}, nil)
			h.begin(t, "lab")

			h.source.push(sourceResult{frame: limited})
			h.sched.Tick()

			st := h.sampler.Status()
			if st.Records != tt.wantRecords {
				t.Fatalf("Records = %d, want %d", st.Records, tt.wantRecords)
			}
			if st.LastTracking != "Tracking: Limited due to excessive motion!" {
				t.Fatalf("LastTracking = %q", st.LastTracking)
			}
		})
	}
}

func TestSampler_StartWhileCapturing(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)
	h.begin(t, "one")

	err := h.sampler.Start(context.Background(), "two")
	if !errors.Is(err, domain.ErrCaptureActive) {
		t.Fatalf("Start = %v, want ErrCaptureActive", err)
	}
	if st := h.sampler.Status(); st.Session != "one" {
		t.Fatalf("Session = %q, want one", st.Session)
	}
}

func TestSampler_StartInvalidName(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)

	if err := h.sampler.Start(context.Background(), ""); !errors.Is(err, domain.ErrInvalidSessionName) {
		t.Fatalf("Start(\"\") = %v, want ErrInvalidSessionName", err)
	}
	if h.sched.starts != 0 {
		t.Fatal("scheduler armed for an invalid name")
	}
}

func TestSampler_RearmReusesScheduler(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)

	for round, name := range []string{"first", "second"} {
		h.begin(t, name)
		h.source.push(sourceResult{frame: testFrameAt(float32(round))})
		h.sched.Tick()
		if res := h.sampler.Stop(context.Background()); res.Records != 1 {
			t.Fatalf("round %d Stop = %+v", round, res)
		}
	}

	if h.sched.starts != 2 || h.sched.stops != 2 {
		t.Fatalf("scheduler starts/stops = %d/%d, want 2/2", h.sched.starts, h.sched.stops)
	}
	for _, name := range []string{"first", "second"} {
		records, err := h.store.ReadManifest(name)
		if err != nil || len(records) != 1 {
			t.Fatalf("%s manifest = %v, %v", name, records, err)
		}
	}
}

func TestSampler_ManifestFailureIsReportedNotReturned(t *testing.T) {
	h := newHarness(t, SamplerConfig{}, nil)
	h.begin(t, "cellar")

	h.source.push(sourceResult{frame: testFrameAt(1)})
	h.sched.Tick()

	h.wrapped.manifestErr = domain.ErrManifestWrite.WithCause(errors.New("read-only fs"))
	res := h.sampler.Stop(context.Background())

	if res.Written || res.Error == "" || res.Records != 1 {
		t.Fatalf("Stop = %+v, want unwritten flush with error", res)
	}
	st := h.sampler.Status()
	if st.State != StateIdle || st.Session != "" || st.Records != 0 {
		t.Fatalf("Status = %+v, want reset to idle", st)
	}
	if st.LastFlush == nil || st.LastFlush.Error == "" {
		t.Fatalf("LastFlush = %+v", st.LastFlush)
	}
	if h.metrics.manifests[false] != 1 {
		t.Fatalf("failed manifest metric = %d", h.metrics.manifests[false])
	}
}

func TestSampler_StatusLifecycle(t *testing.T) {
	h := newHarness(t, SamplerConfig{Orientation: domain.OrientationQuaternion}, nil)

	if st := h.sampler.Status(); st.State != StateIdle || st.RunID != "" {
		t.Fatalf("initial Status = %+v", st)
	}

	h.begin(t, "studio")
	st := h.sampler.Status()
	if st.State != StateCapturing || st.Session != "studio" || len(st.RunID) != 26 || st.StartedAt == 0 {
		t.Fatalf("capturing Status = %+v", st)
	}
	if !h.metrics.active {
		t.Fatal("capture active gauge not set")
	}

	h.source.push(sourceResult{frame: testFrameAt(0)})
	h.sched.Tick()
	h.sampler.Stop(context.Background())

	records, err := h.store.ReadManifest("studio")
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Orientation != [4]float32{0, 0, 0, 1} {
		t.Fatalf("quaternion orientation = %v, want identity", records[0].Orientation)
	}
	if h.metrics.active {
		t.Fatal("capture active gauge still set after Stop")
	}
}

// blockingSource blocks the first CurrentFrame call until released.
type blockingSource struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSource) CurrentFrame(context.Context) (*domain.Frame, error) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return testFrameAt(7), nil
}

func TestSampler_StopDrainsInFlightTick(t *testing.T) {
	store, err := capturestore.New(capturestore.Config{Root: t.TempDir(), Logger: testLogger()})
	if err != nil {
		t.Fatal(err)
	}
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewSampler(src, stubEncoder{}, store, SamplerConfig{
		Interval: time.Millisecond,
		Logger:   testLogger(),
	})

	if err := store.CreateSession("race"); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background(), "race"); err != nil {
		t.Fatal(err)
	}

	<-src.entered
	done := make(chan FlushResult, 1)
	go func() { done <- s.Stop(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Stop returned while a tick was in flight")
	case <-time.After(30 * time.Millisecond):
	}
	close(src.release)

	var res FlushResult
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	if res.Records < 1 || !res.Written {
		t.Fatalf("Stop = %+v, want the in-flight record flushed", res)
	}

	records, err := store.ReadManifest("race")
	if err != nil {
		t.Fatal(err)
	}
	files := jpgFiles(t, store.SessionDir("race"))
	if len(records) != res.Records || len(files) != res.Records {
		t.Fatalf("%d records, %d files, flush reported %d", len(records), len(files), res.Records)
	}
}
