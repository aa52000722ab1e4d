package service

// State is the sampler lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateStopping  State = "stopping"
)

// Tick outcomes reported to Metrics. A tick without a frame reports nothing.
const (
	TickOK              = "ok"
	TickSourceError     = "source_error"
	TickTrackingLimited = "tracking_limited"
	TickEncodeError     = "encode_error"
	TickWriteError      = "write_error"
)

// Status is a point-in-time view of the sampler.
type Status struct {
	State     State  `json:"state"`
	Session   string `json:"session,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	StartedAt int64  `json:"started_at,omitempty"` // Unix ms

	// Records is the number of records accumulated by the active capture.
	Records int `json:"records"`

	// Dropped counts ticks that had a frame but produced no record.
	Dropped int `json:"dropped"`

	LastTracking string `json:"last_tracking,omitempty"`
	LastFile     string `json:"last_file,omitempty"`

	// LastFlush describes the most recent stop.
	LastFlush *FlushResult `json:"last_flush,omitempty"`
}

// FlushResult reports the manifest flush performed by Stop.
type FlushResult struct {
	Session string `json:"session"`
	RunID   string `json:"run_id"`
	Records int    `json:"records"`
	Written bool   `json:"written"`
	Error   string `json:"error,omitempty"`
}
