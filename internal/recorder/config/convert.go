package config

import (
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/core/service"
	"github.com/yndnr/arsnap-go/internal/source"
	"github.com/yndnr/arsnap-go/internal/storage/capturestore"
	"github.com/yndnr/arsnap-go/internal/telemetry/logger"
)

// ToStoreConfig converts the storage section to capturestore.Config.
func ToStoreConfig(cfg *RecorderConfig, log *slog.Logger) capturestore.Config {
	return capturestore.Config{
		Root:         cfg.Storage.Root,
		MinFreeBytes: cfg.Storage.MinFreeBytes,
		Logger:       log,
	}
}

// ToSourceConfig converts the source section to source.Config.
func ToSourceConfig(cfg *RecorderConfig) source.Config {
	s := cfg.Source
	out := source.Config{
		Kind: s.Kind,
		Synthetic: source.SyntheticConfig{
			Radius:      s.Synthetic.Radius,
			Height:      s.Synthetic.Height,
			Period:      s.Synthetic.Period,
			ImageWidth:  s.Synthetic.ImageWidth,
			ImageHeight: s.Synthetic.ImageHeight,
			FOVDegrees:  s.Synthetic.FOVDegrees,
			DropEvery:   s.Synthetic.DropEvery,
		},
		Replay: source.ReplayConfig{
			Dir:  s.Replay.Dir,
			Loop: s.Replay.Loop,
		},
		Screen: source.ScreenConfig{
			FOVDegrees: s.Screen.FOVDegrees,
		},
	}
	if s.Screen.Width > 0 && s.Screen.Height > 0 {
		out.Screen.Region = image.Rect(s.Screen.X, s.Screen.Y,
			s.Screen.X+s.Screen.Width, s.Screen.Y+s.Screen.Height)
	}
	return out
}

// ToEncoder builds the JPEG encoder from the capture section.
func ToEncoder(cfg *RecorderConfig) *source.JPEGEncoder {
	return &source.JPEGEncoder{
		Quality:      cfg.Capture.JPEGQuality,
		MaxDimension: cfg.Capture.MaxDimension,
	}
}

// ToSamplerConfig converts the capture section to service.SamplerConfig.
// Scheduler, Metrics and Clock are left for the caller.
func ToSamplerConfig(cfg *RecorderConfig, log *slog.Logger) (service.SamplerConfig, error) {
	mode, err := domain.ParseOrientationMode(cfg.Capture.Orientation)
	if err != nil {
		return service.SamplerConfig{}, err
	}
	interval := cfg.Capture.Interval
	if interval <= 0 {
		interval = time.Second
	}
	return service.SamplerConfig{
		Interval:              interval,
		Orientation:           mode,
		RequireNormalTracking: cfg.Capture.RequireNormalTracking,
		Logger:                log,
	}, nil
}

// ToLoggerConfig converts the log section to logger.Config writing to
// stderr.
func ToLoggerConfig(cfg *RecorderConfig) logger.Config {
	return logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     os.Stderr,
		RedactHome: cfg.Log.RedactHome,
	}
}
