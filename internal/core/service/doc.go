// Package service implements the capture pipeline for arsnap.
//
// The Sampler is a two-state machine (idle, capturing). While capturing, a
// Scheduler delivers serial ticks; each tick pulls the current frame from a
// FrameSource, encodes its snapshot, writes it through the CaptureStore and
// appends a SnapshotRecord. Stop drains the in-flight tick and flushes the
// records as the session manifest.
//
// Collaborators are interfaces so the pipeline can be driven by tests with
// a manual scheduler and in-memory fakes.
package service
