// Package metrics exposes Prometheus collectors for the media pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "brand_media"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	downloads   *prometheus.CounterVec
	merges      *prometheus.CounterVec
	sourceRuns  *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	bytes       *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		downloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_downloads_total",
			Help:      "Media URL downloads by source and outcome.",
		}, []string{"source", "outcome"}),
		merges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_merges_total",
			Help:      "Archive blobs merged from job blob stores by source and outcome.",
		}, []string{"source", "outcome"}),
		sourceRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_runs_total",
			Help:      "Scraper runs by source and outcome.",
		}, []string{"source", "outcome"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_run_duration_seconds",
			Help:      "Wall time of one scraper run, job invocation through archive merge.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}, []string{"source"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_bytes_total",
			Help:      "Bytes of media written to archives by source.",
		}, []string{"source"}),
	}
}

// Download records one download outcome of n bytes.
func (m *Metrics) Download(source, outcome string, n int) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(source, outcome).Inc()
	if n > 0 {
		m.bytes.WithLabelValues(source).Add(float64(n))
	}
}

// Merge records one archive merge outcome.
func (m *Metrics) Merge(source, outcome string) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues(source, outcome).Inc()
}

// SourceRun records a completed scraper run.
func (m *Metrics) SourceRun(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.sourceRuns.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.runDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}
