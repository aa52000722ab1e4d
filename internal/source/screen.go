package source

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/vova616/screenshot"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

// ScreenConfig configures ScreenSource.
type ScreenConfig struct {
	// FOVDegrees is the horizontal field of view used to derive intrinsics.
	FOVDegrees float64

	// Region limits the grab to a rectangle. Empty grabs the whole screen.
	Region image.Rectangle
}

// ScreenSource grabs the desktop as the snapshot of a stationary camera at
// the world origin.
type ScreenSource struct {
	cfg  ScreenConfig
	grab func() (*image.RGBA, error)
}

// NewScreenSource creates a screen source.
func NewScreenSource(cfg ScreenConfig) *ScreenSource {
	if cfg.FOVDegrees <= 0 {
		cfg.FOVDegrees = DefaultFOVDegrees
	}
	s := &ScreenSource{cfg: cfg}
	if cfg.Region.Empty() {
		s.grab = screenshot.CaptureScreen
	} else {
		s.grab = func() (*image.RGBA, error) {
			return screenshot.CaptureRect(cfg.Region)
		}
	}
	return s
}

// CurrentFrame implements FrameSource.
func (s *ScreenSource) CurrentFrame(ctx context.Context) (*domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := s.grab()
	if err != nil {
		return nil, fmt.Errorf("screen: capture: %w", err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, domain.ErrNoFrame.WithDetails("empty screen grab")
	}

	b := img.Bounds()
	return &domain.Frame{
		Transform:  domain.IdentityMat4(),
		Intrinsics: intrinsicsForFOV(b.Dx(), b.Dy(), s.cfg.FOVDegrees),
		Snapshot:   img,
		Tracking:   domain.TrackingState{Status: domain.TrackingNormal},
		Timestamp:  time.Now(),
	}, nil
}

// Close implements FrameSource.
func (s *ScreenSource) Close() error {
	return nil
}
