package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

// Source kinds accepted by NewFromConfig.
const (
	KindSynthetic = "synthetic"
	KindReplay    = "replay"
	KindScreen    = "screen"
)

// FrameSource supplies tracking frames on demand.
type FrameSource interface {
	// CurrentFrame returns the latest frame or domain.ErrNoFrame.
	CurrentFrame(ctx context.Context) (*domain.Frame, error)

	// Close releases the source.
	Close() error
}

// Config selects and configures a frame source.
type Config struct {
	Kind      string
	Synthetic SyntheticConfig
	Replay    ReplayConfig
	Screen    ScreenConfig
}

// NewFromConfig opens the source named by cfg.Kind.
func NewFromConfig(cfg Config, logger *slog.Logger) (FrameSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Kind {
	case KindSynthetic, "":
		logger.Info("frame source ready", "kind", KindSynthetic,
			"radius", cfg.Synthetic.Radius, "period", cfg.Synthetic.Period)
		return NewSyntheticSource(cfg.Synthetic), nil
	case KindReplay:
		src, err := NewReplaySource(cfg.Replay)
		if err != nil {
			return nil, err
		}
		logger.Info("frame source ready", "kind", KindReplay,
			"dir", cfg.Replay.Dir, "frames", src.Len(), "loop", cfg.Replay.Loop)
		return src, nil
	case KindScreen:
		logger.Info("frame source ready", "kind", KindScreen, "fov", cfg.Screen.FOVDegrees)
		return NewScreenSource(cfg.Screen), nil
	default:
		return nil, domain.ErrSourceConfig.WithDetails(fmt.Sprintf("unknown kind %q", cfg.Kind))
	}
}
