// Package metrics exposes Prometheus collectors for classification runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/sitecat/internal/category"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// Recorder owns the sitecat collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	urlsProcessed   prometheus.Counter
	classifications *prometheus.CounterVec
	errors          *prometheus.CounterVec
	tokens          *prometheus.CounterVec
	writeRetries    prometheus.Counter
	pageDuration    prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors on reg; nil creates a fresh registry.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		urlsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sitecat_urls_processed_total",
			Help: "Rows for which classification was attempted.",
		}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecat_classifications_total",
			Help: "Finished classifications, labeled by category code and source.",
		}, []string{"code", "source"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecat_errors_total",
			Help: "Per-URL failures, labeled by kind.",
		}, []string{"kind"}),
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecat_llm_tokens_total",
			Help: "Completion tokens consumed, labeled by direction.",
		}, []string{"direction"}),
		writeRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "sitecat_store_write_retries_total",
			Help: "Store cell updates that needed another attempt.",
		}),
		pageDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitecat_page_duration_seconds",
			Help:    "Time spent classifying one URL.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 240},
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		}, []string{"method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveError implements telemetry.Observer.
func (r *Recorder) ObserveError(kind telemetry.ErrorKind) {
	r.errors.WithLabelValues(string(kind)).Inc()
}

// ObserveTokens implements telemetry.Observer.
func (r *Recorder) ObserveTokens(input, output int) {
	if input > 0 {
		r.tokens.WithLabelValues("input").Add(float64(input))
	}
	if output > 0 {
		r.tokens.WithLabelValues("output").Add(float64(output))
	}
}

// ObserveProcessed implements telemetry.Observer.
func (r *Recorder) ObserveProcessed() {
	r.urlsProcessed.Inc()
}

// ObserveClassification records a finished classification and its latency.
func (r *Recorder) ObserveClassification(res category.Result, elapsed time.Duration) {
	r.classifications.WithLabelValues(string(res.Code), string(res.Source)).Inc()
	r.pageDuration.Observe(elapsed.Seconds())
}

// ObserveWriteRetry counts one repeated store write.
func (r *Recorder) ObserveWriteRetry() {
	r.writeRetries.Inc()
}

func (r *Recorder) observeHTTPRequest(method, route string, code int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
