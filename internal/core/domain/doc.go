// Package domain defines the core domain models for arsnap.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Frame: one tracking observation (camera transform, intrinsics, snapshot)
//   - TrackingState: tracking quality reported alongside each frame
//   - SnapshotRecord: the per-image metadata entry persisted in info.json
//   - Errors: domain error codes and their classification
//
// Matrices are column-major and single precision so extracted values are
// bit-identical to what the tracking framework reports.
package domain
