// Package metrics holds the Prometheus instruments for indexing, analysis and
// correlation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docdrift"

// Recorder records pipeline metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	gatherer prometheus.Gatherer

	documentsIndexed  prometheus.Counter
	chunksWritten     prometheus.Counter
	indexErrors       *prometheus.CounterVec
	changeSignals     *prometheus.CounterVec
	correlations      *prometheus.CounterVec
	embeddingDuration prometheus.Histogram
}

// New registers the instruments on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		documentsIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_indexed_total",
			Help:      "Documents chunked, embedded and written to a collection.",
		}),
		chunksWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Chunks upserted into the vector index.",
		}),
		indexErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_errors_total",
			Help:      "Per-file indexing failures by operation.",
		}, []string{"op"}),
		changeSignals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_signals_total",
			Help:      "Change signals emitted by the analyzer by category.",
		}, []string{"category"}),
		correlations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlations_total",
			Help:      "Correlation results by outcome (matched, gap, errored).",
		}, []string{"outcome"}),
		embeddingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Latency of one embedding batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) DocumentIndexed(chunks int) {
	if r == nil {
		return
	}
	r.documentsIndexed.Inc()
	r.chunksWritten.Add(float64(chunks))
}

func (r *Recorder) IndexError(op string) {
	if r == nil {
		return
	}
	r.indexErrors.WithLabelValues(op).Inc()
}

func (r *Recorder) ChangeSignal(category string) {
	if r == nil {
		return
	}
	r.changeSignals.WithLabelValues(category).Inc()
}

func (r *Recorder) Correlation(outcome string) {
	if r == nil {
		return
	}
	r.correlations.WithLabelValues(outcome).Inc()
}

// ObserveEmbedding records the time since start.
func (r *Recorder) ObserveEmbedding(start time.Time) {
	if r == nil {
		return
	}
	r.embeddingDuration.Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
