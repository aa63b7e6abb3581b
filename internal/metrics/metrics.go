// Package metrics records compaction counters in a private Prometheus
// registry. The CLI writes them in node-exporter textfile format.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyperifyio/pagesexpr/internal/compact"
)

type Recorder struct {
	reg      *prometheus.Registry
	runs     *prometheus.CounterVec
	removed  *prometheus.CounterVec
	outBytes prometheus.Histogram
	duration prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagesexpr_compactions_total",
			Help: "Compaction runs by result.",
		}, []string{"result"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagesexpr_elements_removed_total",
			Help: "Elements removed per pipeline stage.",
		}, []string{"stage"}),
		outBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagesexpr_output_bytes",
			Help:    "Size of the produced S-expression.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagesexpr_compaction_seconds",
			Help:    "Wall time of one compaction including document load.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	r.reg.MustRegister(r.runs, r.removed, r.outBytes, r.duration)
	return r
}

// Observe records one run. Stage counters are only recorded for successful
// runs.
func (r *Recorder) Observe(stats compact.Stats, err error) {
	if err != nil {
		r.runs.WithLabelValues(resultLabel(err)).Inc()
		return
	}
	r.runs.WithLabelValues("ok").Inc()
	for stage, n := range stats.Removed {
		r.removed.WithLabelValues(stage).Add(float64(n))
	}
	r.outBytes.Observe(float64(stats.OutputBytes))
	r.duration.Observe(stats.Duration.Seconds())
}

func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, compact.ErrDocumentUnavailable):
		return "document_unavailable"
	case errors.Is(err, compact.ErrTraversal):
		return "traversal_failure"
	default:
		return "error"
	}
}
