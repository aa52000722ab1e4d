package source

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

const sampleTrack = `frames:
  - image: a.png
    transform: [1,0,0,0, 0,1,0,0, 0,0,1,0, 0.5,1.5,-2,1]
    intrinsics: [500,0,0, 0,510,0, 320,240,1]
  - image: b.png
    transform: [1,0,0,0, 0,1,0,0, 0,0,1,0, 1,1.5,-2,1]
    intrinsics: [500,0,0, 0,510,0, 320,240,1]
    tracking:
      status: limited
      reason: excessive_motion
  - image: missing.png
    transform: [1,0,0,0, 0,1,0,0, 0,0,1,0, 2,1.5,-2,1]
    intrinsics: [500,0,0, 0,510,0, 320,240,1]
    tracking:
      status: not_available
`

func newReplayDir(t *testing.T, track string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TrackFileName), []byte(track), 0o644); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(dir, "a.png"), 8, 6)
	writePNG(t, filepath.Join(dir, "b.png"), 8, 6)
	return dir
}

func TestReplaySource_Sequence(t *testing.T) {
	dir := newReplayDir(t, sampleTrack)
	src, err := NewReplaySource(ReplayConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewReplaySource: %v", err)
	}
	defer src.Close()

	if src.Len() != 3 {
		t.Fatalf("Len = %d, want 3", src.Len())
	}
	ctx := context.Background()

	f, err := src.CurrentFrame(ctx)
	if err != nil {
		t.Fatalf("frame 0: %v", err)
	}
	rec := domain.RecordFromFrame("a.jpg", f, domain.OrientationLegacy)
	if rec.Position != [3]float32{0.5, 1.5, -2} {
		t.Fatalf("frame 0 Position = %v", rec.Position)
	}
	if rec.FocalLength != [2]float32{500, 510} || rec.PrincipalPoint != [2]float32{320, 240} {
		t.Fatalf("frame 0 intrinsics = %v %v", rec.FocalLength, rec.PrincipalPoint)
	}
	if b := f.Snapshot.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("snapshot bounds = %v", b)
	}

	f, err = src.CurrentFrame(ctx)
	if err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if f.Tracking.Reason != domain.ReasonExcessiveMotion {
		t.Fatalf("frame 1 Tracking = %+v", f.Tracking)
	}

	if _, err := src.CurrentFrame(ctx); !errors.Is(err, domain.ErrNoFrame) {
		t.Fatalf("frame 2 = %v, want ErrNoFrame for unavailable tracking", err)
	}
	if _, err := src.CurrentFrame(ctx); !errors.Is(err, domain.ErrNoFrame) {
		t.Fatalf("past end = %v, want ErrNoFrame", err)
	}
}

func TestReplaySource_Loop(t *testing.T) {
	dir := newReplayDir(t, sampleTrack)
	src, err := NewReplaySource(ReplayConfig{Dir: dir, Loop: true})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		src.CurrentFrame(ctx)
	}
	f, err := src.CurrentFrame(ctx)
	if err != nil {
		t.Fatalf("looped frame: %v", err)
	}
	if f.Transform.Columns[3].X != 0.5 {
		t.Fatalf("looped to %+v, want first entry", f.Transform.Columns[3])
	}
}

func TestReplaySource_MissingImage(t *testing.T) {
	track := `frames:
  - image: gone.png
    transform: [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]
    intrinsics: [1,0,0, 0,1,0, 0,0,1]
`
	src, err := NewReplaySource(ReplayConfig{Dir: newReplayDir(t, track)})
	if err != nil {
		t.Fatal(err)
	}
	_, err = src.CurrentFrame(context.Background())
	if err == nil || errors.Is(err, domain.ErrNoFrame) {
		t.Fatalf("CurrentFrame = %v, want a source error", err)
	}
}

func TestNewReplaySource_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		track string
	}{
		{"not yaml", "frames: [\n"},
		{"no frames", "frames: []\n"},
		{"short transform", "frames:\n  - image: a.png\n    transform: [1,2,3]\n    intrinsics: [1,0,0,0,1,0,0,0,1]\n"},
		{"short intrinsics", "frames:\n  - image: a.png\n    transform: [1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]\n    intrinsics: [1]\n"},
		{"no image", "frames:\n  - transform: [1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]\n    intrinsics: [1,0,0,0,1,0,0,0,1]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReplaySource(ReplayConfig{Dir: newReplayDir(t, tt.track)})
			if !errors.Is(err, domain.ErrSourceConfig) {
				t.Fatalf("NewReplaySource = %v, want ErrSourceConfig", err)
			}
		})
	}

	if _, err := NewReplaySource(ReplayConfig{}); !errors.Is(err, domain.ErrSourceConfig) {
		t.Fatalf("empty dir = %v, want ErrSourceConfig", err)
	}
	if _, err := NewReplaySource(ReplayConfig{Dir: t.TempDir()}); !errors.Is(err, domain.ErrSourceConfig) {
		t.Fatalf("missing track = %v, want ErrSourceConfig", err)
	}
}
