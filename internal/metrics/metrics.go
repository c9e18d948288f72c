// Package metrics exposes Prometheus instrumentation for the staging
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pdfmerge"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	stagedFiles   prometheus.Counter
	rejected      *prometheus.CounterVec
	previews      *prometheus.CounterVec
	merges        *prometheus.CounterVec
	mergeDuration prometheus.Histogram
	mergedDocs    prometheus.Counter
	swept         prometheus.Counter
	sweepErrors   prometheus.Counter
	accessRetries prometheus.Counter
}

// New registers the collectors on reg. It returns nil when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &Metrics{
		stagedFiles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staged_files_total",
			Help:      "Number of uploaded files written to the staging area",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_uploads_total",
			Help:      "Number of uploads rejected before or after staging",
		}, []string{"reason"}),
		previews: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "previews_total",
			Help:      "Number of page previews rendered",
		}, []string{"outcome"}),
		merges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Number of merge requests",
		}, []string{"outcome"}),
		mergeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merge_duration_seconds",
			Help:      "Time spent producing a merged document",
			Buckets:   prometheus.DefBuckets,
		}),
		mergedDocs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_documents_total",
			Help:      "Number of source documents consumed by successful merges",
		}),
		swept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_files_total",
			Help:      "Number of expired staged entries removed by the sweep",
		}),
		sweepErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Number of expired entries the sweep failed to remove",
		}),
		accessRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_retries_total",
			Help:      "Number of retried staging accesses",
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) OnStaged() {
	if m == nil {
		return
	}
	m.stagedFiles.Inc()
}

func (m *Metrics) OnRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnPreview(err error) {
	if m == nil {
		return
	}
	m.previews.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) OnMerge(documents int, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues(outcome(err)).Inc()
	m.mergeDuration.Observe(took.Seconds())
	if err == nil {
		m.mergedDocs.Add(float64(documents))
	}
}

func (m *Metrics) OnSweep(removed, failed int) {
	if m == nil {
		return
	}
	m.swept.Add(float64(removed))
	m.sweepErrors.Add(float64(failed))
}

// OnAccessRetry matches the accessor's retry hook.
func (m *Metrics) OnAccessRetry() {
	if m == nil {
		return
	}
	m.accessRetries.Inc()
}
