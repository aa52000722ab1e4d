package domain

import (
	"image"
	"time"
)

// Frame is one sampled observation from the tracking subsystem.
type Frame struct {
	// Transform maps camera-local coordinates to world coordinates.
	Transform Mat4

	// Intrinsics is the camera projection matrix (focal length, principal point).
	Intrinsics Mat3

	// Snapshot is the rendered view at the time of the frame.
	Snapshot image.Image

	// Tracking is the tracking quality reported with the frame.
	Tracking TrackingState

	// Timestamp is when the frame was observed.
	Timestamp time.Time
}

// TrackingStatus is the coarse tracking quality.
type TrackingStatus string

const (
	TrackingNotAvailable TrackingStatus = "not_available"
	TrackingNormal       TrackingStatus = "normal"
	TrackingLimited      TrackingStatus = "limited"
)

// LimitedReason explains why tracking is limited.
type LimitedReason string

const (
	ReasonNone                 LimitedReason = ""
	ReasonExcessiveMotion      LimitedReason = "excessive_motion"
	ReasonInsufficientFeatures LimitedReason = "insufficient_features"
	ReasonInitializing         LimitedReason = "initializing"
	ReasonRelocalizing         LimitedReason = "relocalizing"
	ReasonUnknown              LimitedReason = "unknown"
)

// TrackingState is the tracking quality attached to a frame.
// The zero value is treated as normal tracking.
type TrackingState struct {
	Status TrackingStatus `json:"status" yaml:"status"`
	Reason LimitedReason  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// IsNormal reports whether tracking is fully available.
func (s TrackingState) IsNormal() bool {
	return s.Status == TrackingNormal || s.Status == ""
}

// Describe returns the status line shown to the operator.
// Normal tracking returns an empty string.
func (s TrackingState) Describe() string {
	switch s.Status {
	case TrackingNormal, "":
		return ""
	case TrackingNotAvailable:
		return "Tracking: Not available!"
	}
	switch s.Reason {
	case ReasonExcessiveMotion:
		return "Tracking: Limited due to excessive motion!"
	case ReasonInsufficientFeatures:
		return "Tracking: Limited due to insufficient features!"
	case ReasonInitializing:
		return "Tracking: Initializing..."
	case ReasonRelocalizing:
		return "Tracking: Relocalizing..."
	default:
		return "Tracking: Unknown..."
	}
}
