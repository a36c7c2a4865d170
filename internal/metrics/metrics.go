// Package metrics exposes Prometheus collectors for the gateway service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gatewayCommandsTotal          *prometheus.CounterVec
	gatewayCommandDurationSeconds *prometheus.HistogramVec
	gatewayInflightCommands       prometheus.Gauge
	gatewayDroppedResultsTotal    prometheus.Counter
	gatewayEngineRestartsTotal    prometheus.Counter
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		gatewayCommandsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_commands_total",
				Help: "Total number of automation commands executed, labeled by action and status.",
			},
			[]string{"action", "status"},
		)

		gatewayCommandDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_command_duration_seconds",
				Help:    "Histogram of command execution latencies, labeled by action.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"action"},
		)

		gatewayInflightCommands = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_inflight_commands",
				Help: "Commands currently executing against the browser engine. Must never exceed 1.",
			},
		)

		gatewayDroppedResultsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_dropped_results_total",
				Help: "Results produced after their waiter abandoned the command.",
			},
		)

		gatewayEngineRestartsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_engine_restarts_total",
				Help: "Times the supervisor recycled the browser engine.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCommand records one executed command.
func ObserveCommand(action, status string, duration time.Duration) {
	gatewayCommandsTotal.WithLabelValues(action, status).Inc()
	gatewayCommandDurationSeconds.WithLabelValues(action).Observe(duration.Seconds())
}

// IncInflight increments the in-flight command gauge.
func IncInflight() {
	gatewayInflightCommands.Inc()
}

// DecInflight decrements the in-flight command gauge.
func DecInflight() {
	gatewayInflightCommands.Dec()
}

// ObserveDroppedResult counts a result whose waiter gave up.
func ObserveDroppedResult() {
	gatewayDroppedResultsTotal.Inc()
}

// ObserveEngineRestart counts a supervisor-triggered engine restart.
func ObserveEngineRestart() {
	gatewayEngineRestartsTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
