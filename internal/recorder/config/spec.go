package config

import "time"

// RecorderConfig is the root configuration for arsnap-recorder.
type RecorderConfig struct {
	Storage StorageSection `koanf:"storage"`
	Capture CaptureSection `koanf:"capture"`
	Source  SourceSection  `koanf:"source"`
	Control ControlSection `koanf:"control"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// StorageSection configures the capture store.
type StorageSection struct {
	// Root is the document root. Empty selects <documents>/arsnap.
	Root string `koanf:"root"`

	// MinFreeBytes is required on the root volume before a session is
	// created. Zero disables the check.
	MinFreeBytes uint64 `koanf:"min_free_bytes"`
}

// CaptureSection configures the frame sampler and encoder.
type CaptureSection struct {
	Interval time.Duration `koanf:"interval"`

	// Orientation is "legacy" or "quaternion".
	Orientation string `koanf:"orientation"`

	RequireNormalTracking bool `koanf:"require_normal_tracking"`

	// JPEGQuality is 1-100.
	JPEGQuality int `koanf:"jpeg_quality"`

	// MaxDimension bounds the longer image side. Zero keeps full size.
	MaxDimension int `koanf:"max_dimension"`
}

// SourceSection selects the frame source.
type SourceSection struct {
	// Kind is synthetic, replay or screen.
	Kind      string           `koanf:"kind"`
	Synthetic SyntheticSection `koanf:"synthetic"`
	Replay    ReplaySection    `koanf:"replay"`
	Screen    ScreenSection    `koanf:"screen"`
}

// SyntheticSection configures the orbiting test camera.
type SyntheticSection struct {
	Radius      float64       `koanf:"radius"`
	Height      float64       `koanf:"height"`
	Period      time.Duration `koanf:"period"`
	ImageWidth  int           `koanf:"image_width"`
	ImageHeight int           `koanf:"image_height"`
	FOVDegrees  float64       `koanf:"fov_degrees"`
	DropEvery   int           `koanf:"drop_every"`
}

// ReplaySection configures playback of a recorded track.
type ReplaySection struct {
	Dir  string `koanf:"dir"`
	Loop bool   `koanf:"loop"`
}

// ScreenSection configures desktop capture.
type ScreenSection struct {
	FOVDegrees float64 `koanf:"fov_degrees"`

	// Region is x, y, width, height. All zero grabs the whole screen.
	X      int `koanf:"x"`
	Y      int `koanf:"y"`
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
}

// ControlSection configures the local control socket.
type ControlSection struct {
	SocketPath string `koanf:"socket_path"`
}

// MetricsSection configures the metrics HTTP listener.
type MetricsSection struct {
	// Addr is the listen address. Empty disables the listener.
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	RedactHome bool   `koanf:"redact_home"`
}
