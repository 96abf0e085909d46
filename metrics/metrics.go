// Package metrics holds the Prometheus collectors for the dashboard API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rewards_dashboard"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	pointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "points",
			Name:      "awarded_total",
			Help:      "Points awarded, by source.",
		},
		[]string{"source"},
	)

	lotteryDraws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "draws_total",
			Help:      "Lottery draws, by outcome.",
		},
		[]string{"outcome"},
	)

	extensionSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "extension",
			Name:      "open_sessions",
			Help:      "Browser-extension sessions currently open and active.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		pointsAwarded,
		lotteryDraws,
		extensionSessions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordPoints adds awarded points for source.
func RecordPoints(source string, points int64) {
	if points > 0 {
		pointsAwarded.WithLabelValues(source).Add(float64(points))
	}
}

// RecordLotteryDraw counts a draw outcome ("drawn", "no_entrants", "error").
func RecordLotteryDraw(outcome string) {
	lotteryDraws.WithLabelValues(outcome).Inc()
}

// SetOpenSessions sets the open extension session gauge.
func SetOpenSessions(n int64) {
	extensionSessions.Set(float64(n))
}
