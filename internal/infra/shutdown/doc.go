// Package shutdown provides graceful shutdown for the arsnap recorder.
//
// A Handler waits for SIGINT/SIGTERM, an explicit Trigger, or the
// cancellation of a parent context, then runs the registered hooks in
// reverse order under a shared timeout. The recorder registers the sampler
// stop first so that it runs last, after the control and metrics listeners
// have closed and no new capture can start.
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown("control", srv.Close)
//	err := h.Wait(ctx)
package shutdown
