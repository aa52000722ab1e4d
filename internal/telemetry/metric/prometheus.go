package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arsnap"

// Registry holds all recorder metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Capture metrics
	CaptureActive   prometheus.Gauge
	CaptureRecords  prometheus.Gauge
	SessionsStarted prometheus.Counter
	TicksTotal      *prometheus.CounterVec

	// Storage metrics
	ImageWriteDuration prometheus.Histogram
	ImageBytes         prometheus.Counter
	ManifestWrites     *prometheus.CounterVec

	// Control metrics
	CommandsTotal *prometheus.CounterVec
}

// NewRegistry creates a registry with the recorder metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		CaptureActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_active",
			Help:      "1 while a capture session is recording.",
		}),
		CaptureRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_records",
			Help:      "Records accumulated by the active capture.",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Capture sessions started.",
		}),
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Capture ticks that had a frame, by outcome.",
		}, []string{"result"}),

		ImageWriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_write_duration_seconds",
			Help:      "Time to write one snapshot image.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ImageBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_bytes_total",
			Help:      "Encoded snapshot bytes written.",
		}),
		ManifestWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_writes_total",
			Help:      "Session manifest writes, by result.",
		}, []string{"result"}),

		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_commands_total",
			Help:      "Control socket commands, by command and result.",
		}, []string{"command", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CaptureActive,
		r.CaptureRecords,
		r.SessionsStarted,
		r.TicksTotal,
		r.ImageWriteDuration,
		r.ImageBytes,
		r.ManifestWrites,
		r.CommandsTotal,
	)

	return r
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// MustRegister adds extra collectors to the registry.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// ============================================================================
// Capture pipeline hooks
// ============================================================================

// RecordTick counts a tick outcome.
func (r *Registry) RecordTick(result string) {
	r.TicksTotal.WithLabelValues(result).Inc()
}

// ObserveImageWrite records one successful image write.
func (r *Registry) ObserveImageWrite(d time.Duration, bytes int) {
	r.ImageWriteDuration.Observe(d.Seconds())
	r.ImageBytes.Add(float64(bytes))
}

// RecordManifestWrite counts a manifest write.
func (r *Registry) RecordManifestWrite(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.ManifestWrites.WithLabelValues(result).Inc()
}

// SetCaptureActive flips the capture gauge. A transition to active also
// counts a started session.
func (r *Registry) SetCaptureActive(active bool) {
	if active {
		r.CaptureActive.Set(1)
		r.SessionsStarted.Inc()
		return
	}
	r.CaptureActive.Set(0)
}

// SetRecords sets the accumulated record gauge.
func (r *Registry) SetRecords(n int) {
	r.CaptureRecords.Set(float64(n))
}

// RecordCommand counts a control command.
func (r *Registry) RecordCommand(command, result string) {
	r.CommandsTotal.WithLabelValues(command, result).Inc()
}
