// Package metrics provides Prometheus metrics for the toolkit
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pindb_records_loaded_total",
			Help: "Total number of records decoded from dataset files",
		},
		[]string{"format"},
	)

	ParseIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pindb_parse_issues_total",
			Help: "Total number of cells that could not be decoded",
		},
		[]string{"format"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pindb_exports_total",
			Help: "Total number of export attempts",
		},
		[]string{"format", "status"},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pindb_export_duration_seconds",
			Help:    "Time taken to write one export",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"format"},
	)

	ValidationIssues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pindb_validation_issues",
			Help: "Number of findings of the last validation run",
		},
		[]string{"kind"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pindb_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

// Recorder provides a convenient interface for recording toolkit metrics
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordLoad records a decoded dataset
func (m *Recorder) RecordLoad(format string, records, issues int) {
	RecordsLoaded.WithLabelValues(format).Add(float64(records))
	ParseIssues.WithLabelValues(format).Add(float64(issues))
}

// RecordExport records one export attempt
func (m *Recorder) RecordExport(format string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ExportsTotal.WithLabelValues(format, status).Inc()
	ExportDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// RecordValidation sets the finding gauge for each kind
func (m *Recorder) RecordValidation(findings map[string]int) {
	for kind, n := range findings {
		ValidationIssues.WithLabelValues(kind).Set(float64(n))
	}
}

// RecordError records an error
func (m *Recorder) RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// WriteTextfile dumps the default registry in text exposition format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
