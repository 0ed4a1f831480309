package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	analyses     *prometheus.CounterVec
	flareCounts  *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flarescope_messages_sent_total",
				Help: "Total number of flux messages sent to backend",
			},
			[]string{"backend", "source"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flarescope_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		analyses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flarescope_analyses_total",
				Help: "Completed analyses by outcome (success or fallback)",
			},
			[]string{"outcome"},
		),
		flareCounts: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flarescope_last_flare_count",
				Help: "Flare counts from the most recent analysis",
			},
			[]string{"population"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flarescope_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMessageSent records a flux message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, source string) {
	r.messagesSent.WithLabelValues(backend, source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAnalysis records one finished analysis by outcome.
func (r *Recorder) RecordAnalysis(outcome string) {
	r.analyses.WithLabelValues(outcome).Inc()
}

// RecordFlareCounts records the event population of the latest analysis.
func (r *Recorder) RecordFlareCounts(total, nanoflares int) {
	r.flareCounts.WithLabelValues("all").Set(float64(total))
	r.flareCounts.WithLabelValues("nanoflare").Set(float64(nanoflares))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
