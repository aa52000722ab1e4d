// Package source provides frame sources and the snapshot encoder used by
// the capture pipeline.
//
// A frame source stands in for the tracking subsystem: each call to
// CurrentFrame returns the latest camera transform, intrinsics and rendered
// snapshot, or domain.ErrNoFrame when nothing is available. Three sources are
// provided:
//
//   - synthetic: a camera orbiting the origin, for demos and soak tests
//   - replay: a recorded pose track (track.yaml) plus image files
//   - screen: desktop grabs with a fixed pose
package source
