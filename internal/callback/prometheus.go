package callback

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCallback exports passthrough metrics to Prometheus.
type PrometheusCallback struct {
	latency        *prometheus.HistogramVec
	tokenCounter   *prometheus.CounterVec
	requestCounter *prometheus.CounterVec
}

var (
	prometheusOnce     sync.Once
	prometheusCallback *PrometheusCallback
)

// NewPrometheusCallback creates a Prometheus callback with standard metrics.
// Metrics are registered once on the default registry.
func NewPrometheusCallback() *PrometheusCallback {
	prometheusOnce.Do(func() {
		prometheusCallback = &PrometheusCallback{
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "passthru_request_latency_seconds",
				Help:    "Upstream passthrough latency including response relay",
				Buckets: prometheus.DefBuckets,
			}, []string{"provider", "model", "stream"}),

			tokenCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "passthru_tokens_total",
				Help: "Tokens reported by upstream usage blocks",
			}, []string{"provider", "model", "type"}),

			requestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "passthru_requests_total",
				Help: "Total number of passthrough requests",
			}, []string{"provider", "model", "status"}),
		}

		prometheus.MustRegister(
			prometheusCallback.latency,
			prometheusCallback.tokenCounter,
			prometheusCallback.requestCounter,
		)
	})

	return prometheusCallback
}

func (p *PrometheusCallback) LogSuccess(data LogData) {
	p.latency.With(prometheus.Labels{
		"provider": data.Provider, "model": data.Model, "stream": strconv.FormatBool(data.Stream),
	}).Observe(data.Latency.Seconds())

	p.tokenCounter.With(prometheus.Labels{
		"provider": data.Provider, "model": data.Model, "type": "prompt",
	}).Add(float64(data.PromptTokens))

	p.tokenCounter.With(prometheus.Labels{
		"provider": data.Provider, "model": data.Model, "type": "completion",
	}).Add(float64(data.CompletionTokens))

	p.requestCounter.With(prometheus.Labels{
		"provider": data.Provider, "model": data.Model, "status": statusLabel(data),
	}).Inc()
}

func (p *PrometheusCallback) LogFailure(data LogData) {
	p.latency.With(prometheus.Labels{
		"provider": data.Provider, "model": data.Model, "stream": strconv.FormatBool(data.Stream),
	}).Observe(data.Latency.Seconds())

	p.requestCounter.With(prometheus.Labels{
		"provider": data.Provider, "model": data.Model, "status": statusLabel(data),
	}).Inc()
}

func statusLabel(data LogData) string {
	if data.StatusCode > 0 {
		return strconv.Itoa(data.StatusCode)
	}
	if data.Error != nil {
		return "error"
	}
	return strconv.Itoa(http.StatusOK)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
