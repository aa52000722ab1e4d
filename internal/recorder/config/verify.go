package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/source"
	"github.com/yndnr/arsnap-go/internal/telemetry/logger"
)

// Verify validates the configuration. All problems are reported together.
func Verify(cfg *RecorderConfig) error {
	if cfg == nil {
		return errors.New("recorder config is nil")
	}
	return errors.Join(
		verifyCapture(&cfg.Capture),
		verifySource(&cfg.Source),
		verifyControl(&cfg.Control),
		verifyMetrics(&cfg.Metrics),
		verifyLog(&cfg.Log),
	)
}

func verifyCapture(cfg *CaptureSection) error {
	var errs []error
	if cfg.Interval <= 0 {
		errs = append(errs, errors.New("capture.interval must be positive"))
	}
	if _, err := domain.ParseOrientationMode(cfg.Orientation); err != nil {
		errs = append(errs, fmt.Errorf("capture.orientation: %w", err))
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		errs = append(errs, errors.New("capture.jpeg_quality must be between 1 and 100"))
	}
	if cfg.MaxDimension < 0 {
		errs = append(errs, errors.New("capture.max_dimension must not be negative"))
	}
	return errors.Join(errs...)
}

func verifySource(cfg *SourceSection) error {
	switch cfg.Kind {
	case source.KindSynthetic:
		s := cfg.Synthetic
		if s.ImageWidth < 0 || s.ImageHeight < 0 || s.DropEvery < 0 {
			return errors.New("source.synthetic sizes and drop_every must not be negative")
		}
		return verifyFOV("source.synthetic.fov_degrees", s.FOVDegrees)
	case source.KindReplay:
		if cfg.Replay.Dir == "" {
			return errors.New("source.replay.dir is required for the replay source")
		}
		return nil
	case source.KindScreen:
		s := cfg.Screen
		if s.Width < 0 || s.Height < 0 {
			return errors.New("source.screen region must not have a negative size")
		}
		if (s.Width == 0) != (s.Height == 0) {
			return errors.New("source.screen width and height must be set together")
		}
		return verifyFOV("source.screen.fov_degrees", s.FOVDegrees)
	default:
		return fmt.Errorf("source.kind %q is not one of %s, %s, %s",
			cfg.Kind, source.KindSynthetic, source.KindReplay, source.KindScreen)
	}
}

// verifyFOV accepts zero, which selects the source default.
func verifyFOV(key string, fov float64) error {
	if fov < 0 || fov >= 180 {
		return fmt.Errorf("%s must be in [0, 180)", key)
	}
	return nil
}

func verifyControl(cfg *ControlSection) error {
	if cfg.SocketPath == "" {
		return errors.New("control.socket_path is required")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("metrics.addr: %w", err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", cfg.Format))
	}
	return errors.Join(errs...)
}
