// Package metrics provides Prometheus metrics for the relay.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Failure reasons recorded in RelayFailures.
const (
	ReasonInvalidEncoding     = "invalid_encoding"
	ReasonInvalidUTF8         = "invalid_utf8"
	ReasonUpstreamUnreachable = "upstream_unreachable"
	ReasonUpstreamStatus      = "upstream_status"
)

// Metrics holds all Prometheus metric collectors for the relay.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  prometheus.Histogram
	UpstreamResponses *prometheus.CounterVec

	RelayFailures *prometheus.CounterVec
	BytesRelayed  prometheus.Counter
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "url_relay_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "url_relay_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds, including body streaming.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "url_relay_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "url_relay_upstream_request_duration_seconds",
			Help:    "Time until upstream response headers arrive, in seconds.",
			Buckets: defaultBuckets,
		}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "url_relay_upstream_responses_total",
			Help: "Total upstream responses by status class.",
		}, []string{"status_class"}),

		RelayFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "url_relay_failures_total",
			Help: "Relay requests aborted before streaming, by reason.",
		}, []string{"reason"}),

		BytesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "url_relay_bytes_relayed_total",
			Help: "Upstream body bytes written to clients.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.RelayFailures,
		m.BytesRelayed,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// RelayRoute is the route label for single-segment relay paths.
const RelayRoute = "/:encoded_url"

// NormalizeRoute returns a bounded route label for Prometheus metrics.
// Paths listed in opsRoutes keep their value; any other single-segment path
// is a relay request and collapses to RelayRoute.
func NormalizeRoute(path string, opsRoutes []string) string {
	for _, r := range opsRoutes {
		if path == r {
			return r
		}
	}
	rest := strings.TrimPrefix(path, "/")
	if rest != "" && len(rest) < len(path) && !strings.Contains(rest, "/") {
		return RelayRoute
	}
	return "other"
}

// StatusClass returns the "2xx"-style label for an HTTP status code.
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	}
	return "other"
}
