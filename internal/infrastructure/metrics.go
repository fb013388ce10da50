package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics collects per-file conversion metrics in a private registry.
// A CLI run has no scrape endpoint, so the registry is written out as a
// node_exporter textfile at the end of the run.
type BatchMetrics struct {
	registry     *prometheus.Registry
	filesTotal   *prometheus.CounterVec
	rowsTotal    prometheus.Counter
	fileDuration prometheus.Histogram
}

// NewBatchMetrics creates and registers the conversion metrics
func NewBatchMetrics() *BatchMetrics {
	m := &BatchMetrics{
		registry: prometheus.NewRegistry(),
		filesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iapd",
			Name:      "files_processed_total",
			Help:      "Number of XML files processed, by outcome.",
		}, []string{"status"}),
		rowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iapd",
			Name:      "rows_written_total",
			Help:      "Number of data rows written to the output table.",
		}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "iapd",
			Name:      "file_duration_seconds",
			Help:      "Time spent reading and flattening one XML file.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(m.filesTotal, m.rowsTotal, m.fileDuration)
	return m
}

// FileProcessed records the outcome of one input file
func (m *BatchMetrics) FileProcessed(status string, rows int, elapsed time.Duration) {
	m.filesTotal.WithLabelValues(status).Inc()
	m.rowsTotal.Add(float64(rows))
	m.fileDuration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, mainly for tests
func (m *BatchMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the Prometheus text format
func (m *BatchMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
