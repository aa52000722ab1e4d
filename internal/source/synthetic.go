package source

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

// Synthetic source defaults.
const (
	DefaultOrbitRadius = 2.0
	DefaultOrbitHeight = 1.5
	DefaultOrbitPeriod = 30 * time.Second
	DefaultImageWidth  = 640
	DefaultImageHeight = 480
)

// SyntheticConfig configures SyntheticSource.
type SyntheticConfig struct {
	// Radius and Height place the camera on a horizontal circle around the
	// origin, in metres.
	Radius float64
	Height float64

	// Period is the time for one full orbit.
	Period time.Duration

	// ImageWidth and ImageHeight size the generated snapshot, in pixels.
	ImageWidth  int
	ImageHeight int

	FOVDegrees float64

	// DropEvery makes every Nth pull report no frame. Zero disables.
	DropEvery int

	// Clock drives the orbit. Defaults to time.Now.
	Clock func() time.Time
}

// SyntheticSource is a camera orbiting the origin while looking at it.
type SyntheticSource struct {
	cfg   SyntheticConfig
	start time.Time

	mu    sync.Mutex
	pulls int
}

// NewSyntheticSource creates a synthetic source, filling unset options with
// defaults.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultOrbitRadius
	}
	if cfg.Height == 0 {
		cfg.Height = DefaultOrbitHeight
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultOrbitPeriod
	}
	if cfg.ImageWidth <= 0 {
		cfg.ImageWidth = DefaultImageWidth
	}
	if cfg.ImageHeight <= 0 {
		cfg.ImageHeight = DefaultImageHeight
	}
	if cfg.FOVDegrees <= 0 {
		cfg.FOVDegrees = DefaultFOVDegrees
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &SyntheticSource{cfg: cfg, start: cfg.Clock()}
}

// CurrentFrame implements FrameSource.
func (s *SyntheticSource) CurrentFrame(ctx context.Context) (*domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pulls++
	pull := s.pulls
	s.mu.Unlock()

	if s.cfg.DropEvery > 0 && pull%s.cfg.DropEvery == 0 {
		return nil, domain.ErrNoFrame.WithDetails("relocalizing")
	}

	now := s.cfg.Clock()
	angle := s.angleAt(now)
	eye := [3]float64{
		s.cfg.Radius * math.Cos(angle),
		s.cfg.Height,
		s.cfg.Radius * math.Sin(angle),
	}

	return &domain.Frame{
		Transform:  lookAt(eye, [3]float64{0, 0, 0}, [3]float64{0, 1, 0}),
		Intrinsics: intrinsicsForFOV(s.cfg.ImageWidth, s.cfg.ImageHeight, s.cfg.FOVDegrees),
		Snapshot:   s.render(angle),
		Tracking:   domain.TrackingState{Status: domain.TrackingNormal},
		Timestamp:  now,
	}, nil
}

// angleAt returns the orbit angle in radians at t.
func (s *SyntheticSource) angleAt(t time.Time) float64 {
	elapsed := t.Sub(s.start)
	return 2 * math.Pi * float64(elapsed%s.cfg.Period) / float64(s.cfg.Period)
}

// render draws a gradient whose hue follows the orbit angle, with a marker
// column at the angle's horizontal position.
func (s *SyntheticSource) render(angle float64) image.Image {
	w, h := s.cfg.ImageWidth, s.cfg.ImageHeight
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	shift := uint8(angle / (2 * math.Pi) * 255)
	marker := int(angle / (2 * math.Pi) * float64(w))

	for y := 0; y < h; y++ {
		g := uint8(y * 255 / h)
		for x := 0; x < w; x++ {
			c := color.RGBA{R: uint8(x*255/w) + shift, G: g, B: 255 - shift, A: 255}
			if x >= marker-2 && x <= marker+2 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Close implements FrameSource.
func (s *SyntheticSource) Close() error {
	return nil
}
