package command

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/core/service"
	"github.com/yndnr/arsnap-go/internal/recorder/control"
)

// fakeRecorder is the capture side of an in-process control server.
type fakeRecorder struct {
	mu        sync.Mutex
	created   []string
	state     service.State
	session   string
	records   int
	flushErr  string
	reloaded  int
	reloadErr error
}

func (f *fakeRecorder) CreateSession(session string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, session)
	return nil
}

func (f *fakeRecorder) Start(ctx context.Context, session string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = service.StateCapturing
	f.session = session
	f.records = 0
	return nil
}

func (f *fakeRecorder) Stop(ctx context.Context) service.FlushResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != service.StateCapturing {
		return service.FlushResult{}
	}
	res := service.FlushResult{Session: f.session, RunID: "01jrun", Records: f.records}
	if f.flushErr != "" {
		res.Error = f.flushErr
	} else {
		res.Written = f.records > 0
	}
	f.state = service.StateIdle
	f.session = ""
	return res
}

func (f *fakeRecorder) Status() service.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := service.Status{State: f.state, Session: f.session, Records: f.records}
	if st.State == "" {
		st.State = service.StateIdle
	}
	if f.state == service.StateCapturing {
		st.RunID = "01jrun"
		st.StartedAt = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC).UnixMilli()
	}
	return st
}

func (f *fakeRecorder) createdSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.created...)
}

func (f *fakeRecorder) reloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloaded
}

func (f *fakeRecorder) reload(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloaded++
	return f.reloadErr
}

// startRecorder runs a control server backed by rec and returns its socket.
func startRecorder(t *testing.T, rec *fakeRecorder) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "arsnap-cli")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "r.sock")

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := control.NewHandler(rec, rec, control.WithReload(rec.reload), control.WithLogger(log))
	srv := control.New(control.Config{SocketPath: path}, h, log)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(context.Background())
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		<-done
	})
	return path
}

// testApp wraps App with captured output.
type testApp struct {
	app    *cli.App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestApp() *testApp {
	ta := &testApp{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	ta.app = App()
	ta.app.Writer = ta.stdout
	ta.app.ErrWriter = ta.stderr
	// Keep cli.Exit from terminating the test binary.
	ta.app.ExitErrHandler = func(*cli.Context, error) {}
	return ta
}

// run executes arsnap-cli with args.
func (ta *testApp) run(args ...string) error {
	return ta.app.Run(append([]string{"arsnap-cli"}, args...))
}

// writeSession creates a session folder holding a manifest and one decodable
// image per record name; names listed in skip get no image.
func writeSession(t *testing.T, root, name string, files []string, skip map[string]bool) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	records := make([]domain.SnapshotRecord, 0, len(files))
	for i, f := range files {
		records = append(records, domain.SnapshotRecord{
			FileName:       f,
			Position:       [3]float32{float32(i), 0, 1.5},
			Orientation:    [4]float32{0, 0, 0, 1},
			FocalLength:    [2]float32{500, 500},
			PrincipalPoint: [2]float32{320, 240},
		})
		if skip[f] {
			continue
		}
		writeJPEG(t, filepath.Join(dir, f))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "info.json"), data, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return dir
}

func writeJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
}
