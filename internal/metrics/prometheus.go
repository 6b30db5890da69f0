package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes analysis metrics on its own registry, so several
// recorders (one per test server) can coexist.
type Recorder struct {
	registry       *prometheus.Registry
	analyses       *prometheus.CounterVec
	feeLines       *prometheus.CounterVec
	duration       prometheus.Histogram
	textFallbacks  prometheus.Counter
	requestErrors  *prometheus.CounterVec
	summaryResults *prometheus.CounterVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finfeex_analyses_total",
				Help: "Statements analysed, by text source",
			},
			[]string{"source"},
		),
		feeLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finfeex_fee_lines_total",
				Help: "Fee lines detected, by category",
			},
			[]string{"category"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finfeex_analysis_duration_seconds",
				Help:    "Time spent extracting, detecting and annualizing one statement",
				Buckets: prometheus.DefBuckets,
			},
		),
		textFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finfeex_pdf_text_fallbacks_total",
				Help: "PDF uploads that fell back to raw text decoding",
			},
		),
		requestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finfeex_request_errors_total",
				Help: "API requests answered with an error, by error code",
			},
			[]string{"code"},
		),
		summaryResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finfeex_summaries_total",
				Help: "Narrative summary requests, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordAnalysis records one finished analysis.
func (r *Recorder) RecordAnalysis(source string, seconds float64) {
	r.analyses.WithLabelValues(source).Inc()
	r.duration.Observe(seconds)
}

// RecordFeeLine counts one detected fee line.
func (r *Recorder) RecordFeeLine(category string) {
	r.feeLines.WithLabelValues(category).Inc()
}

// RecordTextFallback counts a PDF that could not be read as a PDF.
func (r *Recorder) RecordTextFallback() {
	r.textFallbacks.Inc()
}

// RecordRequestError counts an API error response.
func (r *Recorder) RecordRequestError(code string) {
	r.requestErrors.WithLabelValues(code).Inc()
}

// RecordSummary counts a narrative summary request.
func (r *Recorder) RecordSummary(outcome string) {
	r.summaryResults.WithLabelValues(outcome).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
