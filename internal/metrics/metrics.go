// Package metrics provides Prometheus instrumentation for the seat watcher.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts completed evaluation ticks by outcome ("ok"/"error").
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_ticks_total",
		Help: "Total evaluation ticks completed",
	}, []string{"outcome"})

	// FetchDuration tracks inventory fetch latency.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "waitlist_fetch_duration_seconds",
		Help:    "Inventory snapshot fetch latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// QualifyingListings tracks the size of the current qualifying set.
	QualifyingListings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waitlist_qualifying_listings",
		Help: "Qualifying listings after the most recent successful tick",
	})

	// LowestPrice tracks the most recent lowest qualifying per-seat price.
	LowestPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waitlist_lowest_price_dollars",
		Help: "Lowest qualifying per-seat all-in price",
	})

	// PriceHistoryLength tracks the number of recorded price observations.
	PriceHistoryLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waitlist_price_history_length",
		Help: "Recorded lowest-price observations this run",
	})

	// ConsecutiveErrors tracks the current consecutive-failure count.
	ConsecutiveErrors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waitlist_consecutive_errors",
		Help: "Consecutive failed ticks since the last success",
	})

	// Notifications counts notification outcomes ("sent"/"suppressed"/"failed").
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_notifications_total",
		Help: "Notification dispatch outcomes",
	}, []string{"result"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waitlist_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waitlist_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the route surface is small and
		// fixed, so cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
