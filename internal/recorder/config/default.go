package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/yndnr/arsnap-go/internal/core/service"
	"github.com/yndnr/arsnap-go/internal/source"
)

// Default configuration values.
const (
	DefaultMinFreeBytes = 64 << 20

	DefaultInterval     = service.DefaultInterval
	DefaultOrientation  = "legacy"
	DefaultJPEGQuality  = source.DefaultJPEGQuality
	DefaultMaxDimension = 0

	DefaultSourceKind = source.KindSynthetic

	DefaultMetricsAddr = "127.0.0.1:9464"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	appDir         = "arsnap"
	socketName     = "recorder.sock"
	configFileName = "recorder.yaml"
)

// DefaultSocketPath returns the control socket under the user's runtime
// directory.
func DefaultSocketPath() string {
	return filepath.Join(xdg.RuntimeDir, appDir, socketName)
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, configFileName)
}

// Default returns the default recorder configuration.
func Default() *RecorderConfig {
	return &RecorderConfig{
		Storage: StorageSection{
			MinFreeBytes: DefaultMinFreeBytes,
		},
		Capture: CaptureSection{
			Interval:     DefaultInterval,
			Orientation:  DefaultOrientation,
			JPEGQuality:  DefaultJPEGQuality,
			MaxDimension: DefaultMaxDimension,
		},
		Source: SourceSection{
			Kind: DefaultSourceKind,
			Synthetic: SyntheticSection{
				Radius:      source.DefaultOrbitRadius,
				Height:      source.DefaultOrbitHeight,
				Period:      source.DefaultOrbitPeriod,
				ImageWidth:  source.DefaultImageWidth,
				ImageHeight: source.DefaultImageHeight,
				FOVDegrees:  source.DefaultFOVDegrees,
			},
			Screen: ScreenSection{
				FOVDegrees: source.DefaultFOVDegrees,
			},
		},
		Control: ControlSection{
			SocketPath: DefaultSocketPath(),
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
