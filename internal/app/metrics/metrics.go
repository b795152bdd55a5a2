// Package metrics exposes the Prometheus collectors for the marketplace.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rewear",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rewear",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rewear",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	swapTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rewear",
			Subsystem: "swaps",
			Name:      "transitions_total",
			Help:      "Total number of committed swap transitions.",
		},
		[]string{"status"},
	)

	redemptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rewear",
			Subsystem: "redemptions",
			Name:      "completed_total",
			Help:      "Total number of completed redemptions.",
		},
	)

	redeemedPoints = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rewear",
			Subsystem: "redemptions",
			Name:      "points_total",
			Help:      "Total points spent on redemptions.",
		},
	)

	ratingsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rewear",
			Subsystem: "ratings",
			Name:      "recorded_total",
			Help:      "Total number of ratings recorded.",
		},
		[]string{"score"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		swapTransitions,
		redemptions,
		redeemedPoints,
		ratingsRecorded,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementInFlight bumps the in-flight request gauge.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight drops the in-flight request gauge.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordSwapTransition records one committed swap transition.
func RecordSwapTransition(status string) {
	swapTransitions.WithLabelValues(status).Inc()
}

// RecordRedemption records one completed redemption.
func RecordRedemption(points int64) {
	redemptions.Inc()
	redeemedPoints.Add(float64(points))
}

// RecordRating records one committed rating.
func RecordRating(score int) {
	ratingsRecorded.WithLabelValues(strconv.Itoa(score)).Inc()
}
