// Package metrics exposes Prometheus collectors for the HTTP surface and the
// recommendation core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dineflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dineflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path", "status"},
	)

	cacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dineflow",
			Subsystem: "recommend",
			Name:      "cache_total",
			Help:      "Recommendation cache lookups by outcome",
		},
		[]string{"result"},
	)

	strategyItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dineflow",
			Subsystem: "recommend",
			Name:      "strategy_items_total",
			Help:      "Items contributed to results per strategy",
		},
		[]string{"strategy"},
	)

	strategyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dineflow",
			Subsystem: "recommend",
			Name:      "strategy_errors_total",
			Help:      "Store failures per strategy",
		},
		[]string{"strategy"},
	)

	computeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dineflow",
			Subsystem: "recommend",
			Name:      "compute_seconds",
			Help:      "Time spent computing recommendations on cache miss",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency by route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := "unknown"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		status := strconv.Itoa(wrapped.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCache counts a cache lookup outcome.
func RecordCache(result string) {
	cacheTotal.WithLabelValues(result).Inc()
}

// RecordStrategy counts items a strategy contributed.
func RecordStrategy(strategy string, items int) {
	strategyItems.WithLabelValues(strategy).Add(float64(items))
}

// RecordStrategyError counts a failed strategy query.
func RecordStrategyError(strategy string) {
	strategyErrors.WithLabelValues(strategy).Inc()
}

// ObserveCompute records the duration of a pipeline run.
func ObserveCompute(d time.Duration) {
	computeDuration.Observe(d.Seconds())
}
