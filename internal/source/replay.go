package source

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

// TrackFileName is the pose track expected in a replay directory.
const TrackFileName = "track.yaml"

// ReplayConfig configures ReplaySource.
type ReplayConfig struct {
	// Dir holds track.yaml and the images it names.
	Dir string

	// Loop restarts the track at the end instead of reporting no frame.
	Loop bool
}

// Track is the on-disk replay description.
type Track struct {
	Frames []TrackFrame `yaml:"frames"`
}

// TrackFrame is one recorded observation. Matrices are column-major.
type TrackFrame struct {
	Image      string               `yaml:"image"`
	Transform  []float32            `yaml:"transform"`
	Intrinsics []float32            `yaml:"intrinsics"`
	Tracking   domain.TrackingState `yaml:"tracking,omitempty"`
}

type replayFrame struct {
	image      string
	transform  domain.Mat4
	intrinsics domain.Mat3
	tracking   domain.TrackingState
}

// ReplaySource plays back a recorded pose track, one entry per pull.
type ReplaySource struct {
	dir    string
	loop   bool
	frames []replayFrame

	mu   sync.Mutex
	next int
}

// LoadTrack reads and validates a track file.
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrSourceConfig.WithDetails(path).WithCause(err)
	}
	var track Track
	if err := yaml.Unmarshal(data, &track); err != nil {
		return nil, domain.ErrSourceConfig.WithDetails(path).WithCause(err)
	}
	if len(track.Frames) == 0 {
		return nil, domain.ErrSourceConfig.WithDetails(path + ": track has no frames")
	}
	return &track, nil
}

// NewReplaySource loads <dir>/track.yaml. Every entry must carry a 16-value
// transform and a 9-value intrinsic matrix.
func NewReplaySource(cfg ReplayConfig) (*ReplaySource, error) {
	if cfg.Dir == "" {
		return nil, domain.ErrSourceConfig.WithDetails("replay dir is required")
	}
	track, err := LoadTrack(filepath.Join(cfg.Dir, TrackFileName))
	if err != nil {
		return nil, err
	}

	frames := make([]replayFrame, 0, len(track.Frames))
	for i, tf := range track.Frames {
		if tf.Image == "" {
			return nil, domain.ErrSourceConfig.WithDetails(fmt.Sprintf("frame %d: image is required", i))
		}
		transform, ok := domain.Mat4FromSlice(tf.Transform)
		if !ok {
			return nil, domain.ErrSourceConfig.WithDetails(
				fmt.Sprintf("frame %d: transform has %d values, want 16", i, len(tf.Transform)))
		}
		intrinsics, ok := domain.Mat3FromSlice(tf.Intrinsics)
		if !ok {
			return nil, domain.ErrSourceConfig.WithDetails(
				fmt.Sprintf("frame %d: intrinsics has %d values, want 9", i, len(tf.Intrinsics)))
		}
		frames = append(frames, replayFrame{
			image:      tf.Image,
			transform:  transform,
			intrinsics: intrinsics,
			tracking:   tf.Tracking,
		})
	}

	return &ReplaySource{dir: cfg.Dir, loop: cfg.Loop, frames: frames}, nil
}

// Len returns the number of frames in the track.
func (r *ReplaySource) Len() int {
	return len(r.frames)
}

// CurrentFrame implements FrameSource. Entries whose tracking is not
// available report no frame, like a live tracker would.
func (r *ReplaySource) CurrentFrame(ctx context.Context) (*domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.next >= len(r.frames) {
		if !r.loop {
			r.mu.Unlock()
			return nil, domain.ErrNoFrame.WithDetails("end of track")
		}
		r.next = 0
	}
	rf := r.frames[r.next]
	r.next++
	r.mu.Unlock()

	if rf.tracking.Status == domain.TrackingNotAvailable {
		return nil, domain.ErrNoFrame.WithDetails(rf.tracking.Describe())
	}

	img, err := decodeImage(filepath.Join(r.dir, rf.image))
	if err != nil {
		return nil, err
	}

	return &domain.Frame{
		Transform:  rf.transform,
		Intrinsics: rf.intrinsics,
		Snapshot:   img,
		Tracking:   rf.tracking,
	}, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("replay: decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Close implements FrameSource.
func (r *ReplaySource) Close() error {
	return nil
}
