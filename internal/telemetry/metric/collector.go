package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StorageStats reports the state of the capture store's volume.
type StorageStats interface {
	// FreeBytes returns free space on the document root volume.
	FreeBytes() (uint64, error)
}

// Collector exports storage gauges that are computed on scrape.
type Collector struct {
	stats StorageStats

	freeBytes *prometheus.Desc
	up        *prometheus.Desc
}

// NewCollector creates a collector reading from stats.
func NewCollector(stats StorageStats) *Collector {
	return &Collector{
		stats: stats,
		freeBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "storage", "free_bytes"),
			"Free bytes on the document root volume.",
			nil, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "storage", "up"),
			"1 if the document root volume could be queried.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.freeBytes
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	free, err := c.stats.FreeBytes()
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.freeBytes, prometheus.GaugeValue, float64(free))
}
